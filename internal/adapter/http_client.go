package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/MKhiriev/go-sync-engine/internal/logger"
	"github.com/MKhiriev/go-sync-engine/models"
)

const (
	headerLastModified      = "X-Last-Modified"
	headerWeaveTimestamp    = "X-Weave-Timestamp"
	headerNextOffset        = "X-Weave-Next-Offset"
	headerIfUnmodifiedSince = "X-If-Unmodified-Since"
)

// HTTPClientConfig configures the resty storage client.
type HTTPClientConfig struct {
	// NodeURL is the storage node base URL, including the user path
	// (e.g. https://sync.example.com/1.5/123456). Supplied by the caller
	// along with the token; the engine never talks to a token server.
	NodeURL string
	// Token is the ready-made bearer token for the node.
	Token string
	// Timeout bounds each HTTP request.
	Timeout time.Duration
	// TransientAttempts bounds retries of network and 5xx failures.
	TransientAttempts int
	// TransientWait is the pause between transient retries.
	TransientWait time.Duration
}

type httpStorageClient struct {
	client  *resty.Client
	backoff *BackoffState
	log     *logger.Logger

	attempts int
	wait     time.Duration

	// tokenExpiry is zero when the token is opaque (not a JWT).
	tokenExpiry time.Time

	mu     sync.RWMutex
	limits models.InfoConfiguration
}

// NewHTTPStorageClient builds a [StorageClient] over resty. The backoff
// state is created here and owned by the client; sessions reach it through
// [StorageClient.Backoff].
func NewHTTPStorageClient(cfg HTTPClientConfig, log *logger.Logger) StorageClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.TransientAttempts <= 0 {
		cfg.TransientAttempts = 3
	}
	if cfg.TransientWait <= 0 {
		cfg.TransientWait = time.Second
	}

	cli := resty.New().
		SetBaseURL(strings.TrimRight(cfg.NodeURL, "/")).
		SetTimeout(cfg.Timeout).
		SetAuthToken(cfg.Token)

	return &httpStorageClient{
		client:      cli,
		backoff:     NewBackoffState(),
		log:         log,
		attempts:    cfg.TransientAttempts,
		wait:        cfg.TransientWait,
		tokenExpiry: tokenExpiry(cfg.Token),
		limits:      models.InfoConfiguration{}.WithDefaults(),
	}
}

func (h *httpStorageClient) Backoff() *BackoffState { return h.backoff }

// tokenExpiry extracts the exp claim from a JWT bearer token without
// verifying it; the server is the authority, this only saves a doomed
// request. Opaque tokens yield the zero time.
func tokenExpiry(token string) time.Time {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

type stopCheckKey struct{}

// WithStopCheck returns a context whose multi-request operations (paginated
// fetches, batch POST sequences) consult stop between requests. The check
// never interrupts an in-flight request; a stopped operation surfaces
// context.Canceled.
func WithStopCheck(ctx context.Context, stop func() bool) context.Context {
	return context.WithValue(ctx, stopCheckKey{}, stop)
}

func stopRequested(ctx context.Context) bool {
	stop, ok := ctx.Value(stopCheckKey{}).(func() bool)
	return ok && stop()
}

// do runs one request through the session gates: backoff check, token expiry
// check, bounded transient retry, backoff observation, error mapping.
func (h *httpStorageClient) do(ctx context.Context, send func(*resty.Request) (*resty.Response, error)) (*resty.Response, error) {
	if err := h.backoff.Check(); err != nil {
		return nil, err
	}
	if !h.tokenExpiry.IsZero() && time.Now().After(h.tokenExpiry) {
		return nil, fmt.Errorf("%w: bearer token expired", ErrUnauthorized)
	}

	var lastErr error
	for attempt := 1; attempt <= h.attempts; attempt++ {
		resp, err := send(h.client.R().SetContext(ctx))
		if err != nil {
			lastErr = fmt.Errorf("%w: %v", ErrServerFailure, err)
		} else {
			h.backoff.Observe(resp.Header())
			mapped := mapHTTPError(resp)
			if mapped == nil || !errors.Is(mapped, ErrServerFailure) {
				return resp, mapped
			}
			lastErr = mapped
		}

		if attempt == h.attempts {
			break
		}
		h.log.Warn().Err(lastErr).Int("attempt", attempt).Msg("transient storage failure, retrying")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(h.wait):
		}
	}
	return nil, lastErr
}

func (h *httpStorageClient) FetchInfoConfiguration(ctx context.Context) (models.InfoConfiguration, error) {
	resp, err := h.do(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.Get("/info/configuration")
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Older servers don't serve the endpoint; protocol defaults apply.
			return models.InfoConfiguration{}.WithDefaults(), nil
		}
		return models.InfoConfiguration{}, fmt.Errorf("fetch info/configuration: %w", err)
	}

	var cfg models.InfoConfiguration
	if err = json.Unmarshal(resp.Body(), &cfg); err != nil {
		return models.InfoConfiguration{}, fmt.Errorf("decode info/configuration: %w", err)
	}
	cfg = cfg.WithDefaults()

	h.mu.Lock()
	h.limits = cfg
	h.mu.Unlock()
	return cfg, nil
}

func (h *httpStorageClient) FetchInfoCollections(ctx context.Context) (models.InfoCollections, error) {
	resp, err := h.do(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.Get("/info/collections")
	})
	if err != nil {
		return nil, fmt.Errorf("fetch info/collections: %w", err)
	}

	var colls models.InfoCollections
	if err = json.Unmarshal(resp.Body(), &colls); err != nil {
		return nil, fmt.Errorf("decode info/collections: %w", err)
	}
	return colls, nil
}

func (h *httpStorageClient) FetchMetaGlobal(ctx context.Context) (models.MetaGlobalRecord, models.ServerTimestamp, error) {
	resp, err := h.do(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.Get("/storage/meta/global")
	})
	if err != nil {
		return models.MetaGlobalRecord{}, 0, fmt.Errorf("fetch meta/global: %w", err)
	}

	var bso models.BSO
	if err = json.Unmarshal(resp.Body(), &bso); err != nil {
		return models.MetaGlobalRecord{}, 0, fmt.Errorf("decode meta/global bso: %w", err)
	}

	// meta/global is the one cleartext record: its payload is the JSON
	// document itself, not an encryption envelope.
	var global models.MetaGlobalRecord
	if err = json.Unmarshal([]byte(bso.Payload), &global); err != nil {
		return models.MetaGlobalRecord{}, 0, fmt.Errorf("decode meta/global payload: %w", err)
	}

	ts := responseTimestamp(resp)
	if bso.Modified > ts {
		ts = bso.Modified
	}
	return global, ts, nil
}

func (h *httpStorageClient) PutMetaGlobal(ctx context.Context, global models.MetaGlobalRecord, xius models.ServerTimestamp) (models.ServerTimestamp, error) {
	payload, err := json.Marshal(global)
	if err != nil {
		return 0, fmt.Errorf("marshal meta/global: %w", err)
	}
	body, err := json.Marshal(models.BSO{ID: "global", Payload: string(payload)})
	if err != nil {
		return 0, fmt.Errorf("marshal meta/global bso: %w", err)
	}

	resp, err := h.do(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.
			SetHeader("Content-Type", "application/json").
			SetHeader(headerIfUnmodifiedSince, xius.String()).
			SetBody(body).
			Put("/storage/meta/global")
	})
	if err != nil {
		return 0, fmt.Errorf("put meta/global: %w", err)
	}
	return responseTimestamp(resp), nil
}

func (h *httpStorageClient) FetchCryptoKeys(ctx context.Context) (models.BSO, error) {
	resp, err := h.do(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.Get("/storage/crypto/keys")
	})
	if err != nil {
		return models.BSO{}, fmt.Errorf("fetch crypto/keys: %w", err)
	}

	var bso models.BSO
	if err = json.Unmarshal(resp.Body(), &bso); err != nil {
		return models.BSO{}, fmt.Errorf("decode crypto/keys bso: %w", err)
	}
	if bso.Modified == 0 {
		bso.Modified = responseTimestamp(resp)
	}
	return bso, nil
}

func (h *httpStorageClient) PutCryptoKeys(ctx context.Context, keys models.BSO, xius models.ServerTimestamp) (models.ServerTimestamp, error) {
	body, err := json.Marshal(keys)
	if err != nil {
		return 0, fmt.Errorf("marshal crypto/keys bso: %w", err)
	}

	resp, err := h.do(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.
			SetHeader("Content-Type", "application/json").
			SetHeader(headerIfUnmodifiedSince, xius.String()).
			SetBody(body).
			Put("/storage/crypto/keys")
	})
	if err != nil {
		return 0, fmt.Errorf("put crypto/keys: %w", err)
	}
	return responseTimestamp(resp), nil
}

func (h *httpStorageClient) FetchSince(ctx context.Context, collection string, newer models.ServerTimestamp, limit int) (FetchResult, error) {
	var result FetchResult
	offset := ""

	for {
		if stopRequested(ctx) {
			return FetchResult{}, fmt.Errorf("fetch %s: %w", collection, context.Canceled)
		}

		params := map[string]string{
			"full": "1",
			"sort": "oldest",
		}
		// The lower bound is strictly greater-than: the server interprets
		// newer= exclusively, which is what keeps redelivery and dropped
		// records out.
		if newer > 0 {
			params["newer"] = newer.String()
		}
		if limit > 0 {
			params["limit"] = strconv.Itoa(limit)
		}
		if offset != "" {
			params["offset"] = offset
		}

		resp, err := h.do(ctx, func(r *resty.Request) (*resty.Response, error) {
			return r.SetQueryParams(params).Get("/storage/" + collection)
		})
		if err != nil {
			// A collection nobody has written to yet does not exist server
			// side; an empty read is the correct answer, not a failure.
			if errors.Is(err, ErrNotFound) {
				return result, nil
			}
			return FetchResult{}, fmt.Errorf("fetch %s: %w", collection, err)
		}

		var page []models.BSO
		if err = json.Unmarshal(resp.Body(), &page); err != nil {
			return FetchResult{}, fmt.Errorf("decode %s page: %w", collection, err)
		}
		result.Records = append(result.Records, page...)

		if ts := responseTimestamp(resp); ts > result.Newest {
			result.Newest = ts
		}

		offset = resp.Header().Get(headerNextOffset)
		if offset == "" {
			break
		}
	}

	return result, nil
}

// uploadResponse is the body of a storage POST: accepted and rejected ids,
// plus the batch token when a multi-request batch was opened.
type uploadResponse struct {
	Batch   string            `json:"batch,omitempty"`
	Success []string          `json:"success"`
	Failed  map[string]string `json:"failed"`
}

func (h *httpStorageClient) Upload(ctx context.Context, collection string, records []models.BSO, xius models.ServerTimestamp) (models.UploadResult, error) {
	h.mu.RLock()
	limits := h.limits
	h.mu.RUnlock()

	plan, err := planUpload(records, limits)
	if err != nil {
		return models.UploadResult{}, fmt.Errorf("plan upload for %s: %w", collection, err)
	}

	result := models.UploadResult{FailedIDs: map[string]string{}}
	for id, reason := range plan.oversize {
		result.FailedIDs[id] = reason
		h.log.Warn().Str("collection", collection).Str("id", id).Msg("record dropped: exceeds payload limit")
	}
	if len(plan.batches) == 0 {
		result.Modified = xius
		return result, nil
	}

	for _, posts := range plan.batches {
		batched := len(posts) > 1
		batchToken := ""

		for i, post := range posts {
			if stopRequested(ctx) {
				return models.UploadResult{}, fmt.Errorf("upload %s: %w", collection, context.Canceled)
			}

			body, err := encodePost(post)
			if err != nil {
				return models.UploadResult{}, fmt.Errorf("encode post for %s: %w", collection, err)
			}

			params := map[string]string{}
			if batched {
				if batchToken == "" {
					params["batch"] = "true"
				} else {
					params["batch"] = batchToken
				}
				if i == len(posts)-1 {
					params["commit"] = "true"
				}
			}

			resp, err := h.do(ctx, func(r *resty.Request) (*resty.Response, error) {
				return r.
					SetHeader("Content-Type", "application/json").
					SetHeader(headerIfUnmodifiedSince, xius.String()).
					SetQueryParams(params).
					SetBody(body).
					Post("/storage/" + collection)
			})
			if err != nil {
				return models.UploadResult{}, fmt.Errorf("upload %s: %w", collection, err)
			}

			var ur uploadResponse
			if err = json.Unmarshal(resp.Body(), &ur); err != nil {
				return models.UploadResult{}, fmt.Errorf("decode upload response for %s: %w", collection, err)
			}
			if batched && batchToken == "" {
				if ur.Batch == "" {
					return models.UploadResult{}, fmt.Errorf("upload %s: server did not issue a batch token", collection)
				}
				batchToken = ur.Batch
			}

			result.SuccessIDs = append(result.SuccessIDs, ur.Success...)
			for id, reason := range ur.Failed {
				result.FailedIDs[id] = reason
			}
			result.Modified = responseTimestamp(resp)
		}

		// A committed batch moved the collection's modified time; the next
		// batch must condition on the new value or it would 412 against our
		// own write.
		if result.Modified > xius {
			xius = result.Modified
		}
	}

	return result, nil
}

// responseTimestamp extracts the authoritative server time of a response.
// X-Last-Modified is preferred; X-Weave-Timestamp covers responses that
// don't touch a collection. Client clocks are never consulted.
func responseTimestamp(resp *resty.Response) models.ServerTimestamp {
	for _, header := range []string{headerLastModified, headerWeaveTimestamp} {
		if v := resp.Header().Get(header); v != "" {
			if ts, err := models.ParseServerTimestamp(v); err == nil {
				return ts
			}
		}
	}
	return 0
}
