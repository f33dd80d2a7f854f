package customerapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ErlanBelekov/sultan-shell/internal/domain"
	"github.com/ErlanBelekov/sultan-shell/internal/infrastructure/customerapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func newClient(t *testing.T, h http.HandlerFunc, opts ...customerapi.Option) *customerapi.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	opts = append([]customerapi.Option{customerapi.WithRetry(3, time.Millisecond)}, opts...)
	return customerapi.New(srv.URL, discard, opts...)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestLogin_SendsCredentialsAndDecodesSession(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/login", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Empty(t, r.Header.Get("Authorization"))

		var in customerapi.LoginInput
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "meera@sultan.test", in.Email)

		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"data": map[string]any{
				"token": "tok-1",
				"user":  map[string]any{"id": 9, "name": "Meera"},
			},
		})
	})

	s, err := c.Login(context.Background(), customerapi.LoginInput{Email: "meera@sultan.test", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "tok-1", s.Token)
	assert.Equal(t, int64(9), s.User.ID)
}

func TestLogin_FieldErrors(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"success": false,
			"message": "The given data was invalid.",
			"errors":  map[string]any{"email": []string{"The email field is required."}},
		})
	})

	_, err := c.Login(context.Background(), customerapi.LoginInput{})
	var apiErr *customerapi.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Equal(t, "The given data was invalid.", apiErr.Message)
	assert.Equal(t, []string{"The email field is required."}, apiErr.Fields["email"])
}

func TestUnauthorized_FiresHookAndMatchesSentinel(t *testing.T) {
	type key struct{}
	var seen, rejected atomic.Value
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer stale", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Unauthenticated."})
	}, customerapi.OnUnauthenticated(func(ctx context.Context, token string) {
		seen.Store(ctx.Value(key{}))
		rejected.Store(token)
	}))

	ctx := context.WithValue(context.Background(), key{}, "device-7")
	_, err := c.WithToken("stale").Cart(ctx)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	assert.Equal(t, "device-7", seen.Load())
	assert.Equal(t, "stale", rejected.Load())
}

func TestList_AcceptsBareArray(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"data":    []any{map[string]any{"id": 2, "name": "Bangles"}},
		})
	})

	cats, err := c.Categories(context.Background())
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, "Bangles", cats[0].Name)
}

func TestGet_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			writeJSON(w, http.StatusBadGateway, map[string]any{"message": "upstream"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"data":    map[string]any{"categories": []any{map[string]any{"id": 1, "name": "Rings"}}},
		})
	})

	cats, err := c.Categories(context.Background())
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, "Rings", cats[0].Name)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGet_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "Not found"})
	})

	_, err := c.Product(context.Background(), 4)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestPost_IsNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"message": "down"})
	})

	err := c.PlaceBid(context.Background(), 3, 1500)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSuccessFalseIsAnError(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": "Bid too low"})
	})

	err := c.PlaceBid(context.Background(), 3, 10)
	var apiErr *customerapi.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Bid too low", apiErr.Message)
}

func TestAuction_AcceptsStringAmounts(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auctions/12", r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"data": map[string]any{"auction": map[string]any{
				"id":            12,
				"title":         "Nizam Choker",
				"starting_bid":  "100000.00",
				"current_bid":   nil,
				"bid_increment": "0",
				"end_time":      "2026-11-01T10:00:00Z",
			}},
		})
	})

	a, err := c.Auction(context.Background(), 12)
	require.NoError(t, err)
	assert.Equal(t, domain.Amount(100050), a.MinimumBid())
}

func TestProducts_InvalidPayloadRejected(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"data":    map[string]any{"products": []any{map[string]any{"id": 0, "name": ""}}},
		})
	})

	_, err := c.Products(context.Background(), customerapi.ProductFilter{})
	assert.Error(t, err)
}

func TestProducts_FilterQuery(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "3", r.URL.Query().Get("category_id"))
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{}})
	})

	list, err := c.Products(context.Background(), customerapi.ProductFilter{CategoryID: 3})
	require.NoError(t, err)
	assert.Empty(t, list)
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00\x1f\x15\xc4\x89")

func TestParticipate_MultipartImage(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/contests/5/participate", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "my heirloom", r.FormValue("caption"))
		f, hdr, err := r.FormFile("image")
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, "entry.png", hdr.Filename)
		assert.Equal(t, "image/png", hdr.Header.Get("Content-Type"))
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	})

	err := c.Participate(context.Background(), 5, "my heirloom", customerapi.Upload{Filename: "entry.png", Data: pngHeader})
	require.NoError(t, err)
}

func TestParticipate_RejectsNonImages(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("request must not be sent")
	})

	err := c.Participate(context.Background(), 5, "", customerapi.Upload{Filename: "x.pdf", Data: []byte("%PDF-1.7\n")})
	assert.True(t, errors.Is(err, domain.ErrUnsupportedUpload))
}
