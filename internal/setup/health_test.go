package setup

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/samvad-hq/osrm-kit/pkg/osrm"
)

func healthAgainst(t *testing.T, status int, body string) error {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/nearest/v1/driving/0,0", r.URL.Path)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()
	return CheckHealth(context.Background(), osrm.NewClient(srv.URL, nil))
}

func TestCheckHealth(t *testing.T) {
	assert.NoError(t, healthAgainst(t, http.StatusOK, `{"code":"Ok","waypoints":[{"distance":1,"location":[0,0]}]}`))
	assert.NoError(t, healthAgainst(t, http.StatusOK, `{"code":"NoSegment","message":"Could not find a matching segment"}`))
	assert.NoError(t, healthAgainst(t, http.StatusBadRequest, `{"code":"NoSegment"}`))
	assert.Error(t, healthAgainst(t, http.StatusBadGateway, `upstream down`))
}

func TestCheckHealthUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	assert.Error(t, CheckHealth(context.Background(), osrm.NewClient(addr, nil)))
}
