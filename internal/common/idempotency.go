package common

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// IdempotencyHeader carries the client supplied idempotency token.
const IdempotencyHeader = "Idempotency-Key"

// Idem provides an Idempotency-Key middleware backed by Redis. The first
// successful response for a key is stored and replayed for TTL; a duplicate
// arriving while the first request is still running is rejected with 409.
type Idem struct {
	R       *redis.Client
	TTL     time.Duration
	LockTTL time.Duration
	OnError func(error)
}

type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

func idemKeys(r *http.Request, header string) (lockKey, respKey string) {
	digest := Sha256Hex([]byte(r.Method + " " + r.URL.Path + "\n" + header))
	return "idem:lock:" + digest, "idem:resp:" + digest
}

// Middleware enforces idempotency semantics for write endpoints. Store
// failures never block the request; they are reported through OnError.
func (i Idem) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get(IdempotencyHeader)
		if header == "" || i.R == nil {
			next.ServeHTTP(w, r)
			return
		}
		ctx := r.Context()
		lockKey, respKey := idemKeys(r, header)

		stored, found, err := i.lookup(ctx, respKey)
		if err != nil {
			i.report(err)
			next.ServeHTTP(w, r)
			return
		}
		if found {
			replay(w, stored)
			return
		}

		ok, err := i.R.SetNX(ctx, lockKey, "locked", i.lockTTL()).Result()
		if err != nil {
			i.report(err)
			next.ServeHTTP(w, r)
			return
		}
		if !ok {
			// the holder may have stored its response just before releasing
			if stored, found, err := i.lookup(ctx, respKey); err == nil && found {
				replay(w, stored)
				return
			}
			JSONMessage(w, http.StatusConflict, "Duplicate request in progress")
			return
		}
		defer func() {
			// release even if the handler panics
			_ = i.R.Del(context.Background(), lockKey).Err()
		}()

		// a request that finished between the first lookup and SetNX has
		// already stored its response and released the lock
		stored, found, err = i.lookup(ctx, respKey)
		if err != nil {
			i.report(err)
		}
		if found {
			replay(w, stored)
			return
		}

		rec := &teeRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		if rec.status < 200 || rec.status >= 300 {
			return
		}
		payload, err := json.Marshal(storedResponse{
			Status:      rec.status,
			ContentType: w.Header().Get("Content-Type"),
			Body:        rec.body.Bytes(),
		})
		if err != nil {
			i.report(err)
			return
		}
		if err := i.R.Set(context.Background(), respKey, payload, i.ttl()).Err(); err != nil {
			i.report(err)
		}
	})
}

// lookup returns the stored response for respKey. Undecodable entries are
// treated as missing.
func (i Idem) lookup(ctx context.Context, respKey string) (storedResponse, bool, error) {
	cached, err := i.R.Get(ctx, respKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return storedResponse{}, false, nil
	}
	if err != nil {
		return storedResponse{}, false, err
	}
	var stored storedResponse
	if err := json.Unmarshal(cached, &stored); err != nil {
		return storedResponse{}, false, nil
	}
	return stored, true, nil
}

func (i Idem) ttl() time.Duration {
	if i.TTL <= 0 {
		return 24 * time.Hour
	}
	return i.TTL
}

func (i Idem) lockTTL() time.Duration {
	if i.LockTTL <= 0 {
		return 30 * time.Second
	}
	return i.LockTTL
}

func (i Idem) report(err error) {
	if i.OnError != nil {
		i.OnError(err)
	}
}

func replay(w http.ResponseWriter, stored storedResponse) {
	if stored.ContentType != "" {
		w.Header().Set("Content-Type", stored.ContentType)
	}
	w.Header().Set("Idempotent-Replayed", "true")
	w.WriteHeader(stored.Status)
	_, _ = w.Write(stored.Body)
}

type teeRecorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (t *teeRecorder) WriteHeader(code int) {
	t.status = code
	t.ResponseWriter.WriteHeader(code)
}

func (t *teeRecorder) Write(p []byte) (int, error) {
	t.body.Write(p)
	return t.ResponseWriter.Write(p)
}
