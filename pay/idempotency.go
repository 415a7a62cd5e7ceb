package pay

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"

	"hindustanbills/models"
	"hindustanbills/store"
	"hindustanbills/utils"

	"github.com/julienschmidt/httprouter"
	"github.com/pkg/errors"
)

const (
	idempotencyTTL = 24 * time.Hour
	saveTimeout    = 5 * time.Second
)

func computeRequestHash(r *http.Request, bodyBytes []byte, userID string) string {
	h := sha256.New()
	h.Write([]byte(r.Method + ":" + r.URL.Path + ":" + userID + ":"))
	h.Write(bodyBytes)
	return hex.EncodeToString(h.Sum(nil))
}

// CaptureResponseWriter wraps http.ResponseWriter to capture status and body.
type CaptureResponseWriter struct {
	w           http.ResponseWriter
	statusCode  int
	buf         bytes.Buffer
	wroteHeader bool
}

func NewCaptureResponseWriter(w http.ResponseWriter) *CaptureResponseWriter {
	return &CaptureResponseWriter{w: w, statusCode: http.StatusOK}
}

func (c *CaptureResponseWriter) Header() http.Header {
	return c.w.Header()
}

func (c *CaptureResponseWriter) WriteHeader(statusCode int) {
	if !c.wroteHeader {
		c.statusCode = statusCode
		c.w.WriteHeader(statusCode)
		c.wroteHeader = true
	}
}

func (c *CaptureResponseWriter) Write(b []byte) (int, error) {
	c.buf.Write(b)
	return c.w.Write(b)
}

func (c *CaptureResponseWriter) Status() int {
	return c.statusCode
}

func (c *CaptureResponseWriter) BodyBytes() []byte {
	return c.buf.Bytes()
}

// statusOf reads the stored status back; Mongo returns int32 where the
// memory store keeps int.
func statusOf(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return http.StatusOK
}

// Idempotency replays the stored response for a repeated Idempotency-Key.
//   - No header: pass-through.
//   - New key: run the handler and store its status and body.
//   - Known key with a different request body: 409.
//   - Known key with a stored response: replay it.
//   - Known key still in flight: 409, the client should retry later.
type Idempotency struct {
	records store.Idempotency
}

func NewIdempotency(records store.Idempotency) *Idempotency {
	return &Idempotency{records: records}
}

// finish stores the response even when the client has already gone away.
// If that fails the placeholder is dropped so a retry is not stuck behind it.
func (m *Idempotency) finish(ctx context.Context, key string, resp map[string]interface{}) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), saveTimeout)
	defer cancel()

	err := m.records.SaveIdempotencyResponse(ctx, key, resp)
	if err == nil {
		return
	}
	log.Printf("Idempotency: saving response for %s failed: %v", key, err)
	if err := m.records.DeleteIdempotency(ctx, key); err != nil {
		log.Printf("Idempotency: dropping placeholder %s failed: %v", key, err)
	}
}

func (m *Idempotency) Middleware(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		key := r.Header.Get("Idempotency-Key")
		if key == "" {
			next(w, r, ps)
			return
		}

		userID := utils.GetUserIDFromRequest(r)

		// Limit body size to 1 MB to prevent memory issues
		bodyBytes, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			utils.RespondWithMessage(w, http.StatusBadRequest, "Failed to read request body")
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(bodyBytes))

		reqHash := computeRequestHash(r, bodyBytes, userID)
		now := time.Now()
		rec := &models.IdempotencyRecord{
			Key:         userID + ":" + key,
			Method:      r.Method,
			Path:        r.URL.Path,
			UserID:      userID,
			RequestHash: reqHash,
			CreatedAt:   now,
			ExpiresAt:   now.Add(idempotencyTTL),
		}

		ctx := r.Context()
		err = m.records.InsertIdempotency(ctx, rec)
		if err == nil {
			crw := NewCaptureResponseWriter(w)
			next(crw, r, ps)

			var parsed interface{}
			if err := json.Unmarshal(crw.BodyBytes(), &parsed); err != nil {
				parsed = string(crw.BodyBytes())
			}
			m.finish(ctx, rec.Key, map[string]interface{}{"status": crw.Status(), "body": parsed})
			return
		}

		if !errors.Is(err, store.ErrDuplicate) {
			log.Printf("Idempotency: insert failed: %v", err)
			utils.RespondWithMessage(w, http.StatusInternalServerError, "Idempotency lookup error")
			return
		}

		existing, err := m.records.IdempotencyByKey(ctx, rec.Key)
		if err != nil {
			log.Printf("Idempotency: lookup failed: %v", err)
			utils.RespondWithMessage(w, http.StatusInternalServerError, "Idempotency lookup error")
			return
		}
		if existing.RequestHash != reqHash {
			utils.RespondWithMessage(w, http.StatusConflict, "Idempotency-Key reused with a different request")
			return
		}
		if existing.Response == nil {
			utils.RespondWithMessage(w, http.StatusConflict, "A request with this Idempotency-Key is still in progress")
			return
		}

		w.Header().Set("Idempotent-Replayed", "true")
		utils.RespondWithJSON(w, statusOf(existing.Response["status"]), existing.Response["body"])
	}
}
