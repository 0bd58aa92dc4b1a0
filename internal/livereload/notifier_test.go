package livereload

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/assetgrid/internal/config"
)

func TestNew(t *testing.T) {
	n, err := New(config.LiveReload{URL: "http://localhost:35729/lr/socket.io/"}, "/proj/war")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:35729", n.baseURL)
	assert.Equal(t, "/lr/socket.io/", n.path)
	assert.Equal(t, "/", n.cfg.Namespace)
	assert.Equal(t, "reload", n.cfg.Event)
	assert.Equal(t, 5*time.Second, n.cfg.Timeout)

	_, err = New(config.LiveReload{URL: "localhost"}, "")
	assert.Error(t, err)
	_, err = New(config.LiveReload{URL: "http://%zz"}, "")
	assert.Error(t, err)
}

func TestRelative(t *testing.T) {
	n, err := New(config.LiveReload{URL: "http://localhost:1"}, filepath.FromSlash("/proj/war"))
	require.NoError(t, err)
	got := n.relative([]string{filepath.FromSlash("/proj/war/css/main.css"), filepath.FromSlash("/proj/war/index.html")})
	assert.Equal(t, []string{"css/main.css", "index.html"}, got)
}

func TestNotify_UnreachableEndpointFails(t *testing.T) {
	n, err := New(config.LiveReload{URL: "http://127.0.0.1:1", Timeout: 500 * time.Millisecond}, "/proj/war")
	require.NoError(t, err)
	defer n.Close()

	err = n.Notify(context.Background(), []string{"/proj/war/css/main.css"})
	require.Error(t, err)
	assert.Nil(t, n.client)
}
