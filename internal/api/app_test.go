package api

import (
	"encoding/base64"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/omegachat/omegachat/internal/blob"
	"github.com/omegachat/omegachat/internal/config"
	"github.com/omegachat/omegachat/internal/database"
	"github.com/omegachat/omegachat/internal/server"
	"github.com/omegachat/omegachat/internal/stats"
	"github.com/omegachat/omegachat/internal/testutil"
)

func newTestApp(t *testing.T) (*OmegaChatApp, *database.MockChatRepository, *stats.MockStatsUpdater) {
	t.Helper()

	cfg, err := config.NewConfig(
		"localhost:0",
		"postgres://test",
		base64.StdEncoding.EncodeToString([]byte("test-secret")),
		t.TempDir(),
		[]string{"http://localhost:8000"},
	)
	require.NoError(t, err)

	logger := testutil.TestLogger(t)
	db := &database.MockChatRepository{}
	statsProvider := &stats.MockStatsUpdater{}
	cs := server.NewChatServer(logger, db, statsProvider)

	blobs, err := blob.NewDiskStore(t.TempDir(), "/uploads")
	require.NoError(t, err)

	return NewOmegaChatApp(cfg, logger, db, cs, blobs, statsProvider), db, statsProvider
}

// asUser attaches a verified identity the way the auth middleware hands
// requests to the protected handlers.
func asUser(r *http.Request, userId int, username string) *http.Request {
	return r.WithContext(WithIdentity(r.Context(), Identity{UserId: userId, Username: username}))
}
