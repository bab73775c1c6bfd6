package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/noah-isme/portfolio-api/internal/payment"
)

// signpayment computes or checks checkout signatures with the configured key
// secret, which is handy when exercising /api/verify-payment by hand.
func main() {
	_ = godotenv.Load()
	if err := newRootCmd(os.Stdout, os.Getenv).Execute(); err != nil {
		os.Exit(1)
	}
}

type signFlags struct {
	secret    string
	orderID   string
	paymentID string
}

func newRootCmd(out io.Writer, getenv func(string) string) *cobra.Command {
	var flags signFlags

	root := &cobra.Command{
		Use:          "signpayment",
		Short:        "Compute the checkout signature for an order and payment id",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			secret, err := flags.resolveSecret(getenv)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(out, payment.Signature(secret, flags.orderID, flags.paymentID))
			return err
		},
	}

	var signature string
	verify := &cobra.Command{
		Use:   "verify",
		Short: "Check a signature returned by the checkout widget",
		RunE: func(cmd *cobra.Command, _ []string) error {
			secret, err := flags.resolveSecret(getenv)
			if err != nil {
				return err
			}
			if !payment.VerifySignature(secret, flags.orderID, flags.paymentID, signature) {
				return errors.New("signature mismatch")
			}
			_, err = fmt.Fprintln(out, "signature ok")
			return err
		},
	}
	verify.Flags().StringVar(&signature, "signature", "", "hex signature to check")
	_ = verify.MarkFlagRequired("signature")

	root.PersistentFlags().StringVar(&flags.secret, "secret", "", "key secret (defaults to RAZORPAY_KEY_SECRET)")
	root.PersistentFlags().StringVar(&flags.orderID, "order", "", "provider order id")
	root.PersistentFlags().StringVar(&flags.paymentID, "payment", "", "provider payment id")
	_ = root.MarkPersistentFlagRequired("order")
	_ = root.MarkPersistentFlagRequired("payment")
	root.AddCommand(verify)
	return root
}

func (f signFlags) resolveSecret(getenv func(string) string) (string, error) {
	secret := strings.TrimSpace(f.secret)
	if secret == "" {
		secret = strings.TrimSpace(getenv("RAZORPAY_KEY_SECRET"))
	}
	if secret == "" {
		return "", errors.New("no secret: pass --secret or set RAZORPAY_KEY_SECRET")
	}
	return secret, nil
}
