package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"famgraph/backend/internal/api"
	"famgraph/backend/pkg/config"
	apperrors "famgraph/backend/pkg/errors"
)

func TestBuildMapper_SeedsDemo(t *testing.T) {
	cfg := &config.Config{SeedOnStart: true}

	mapper, err := buildMapper(cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 5, mapper.Store().NodeCount())
	assert.Equal(t, 5, mapper.Store().EdgeCount())
}

func TestBuildMapper_SeedDisabled(t *testing.T) {
	mapper, err := buildMapper(&config.Config{}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 0, mapper.Store().NodeCount())
}

func TestBuildMapper_BadSeedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("people: [oops"), 0o600))

	_, err := buildMapper(&config.Config{SeedOnStart: true, SeedFile: path}, zap.NewNop())
	assert.Error(t, err)
}

func TestHealthEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mapper, err := buildMapper(&config.Config{SeedOnStart: true}, zap.NewNop())
	require.NoError(t, err)
	router := api.NewRouter(mapper, zap.NewNop())

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/health", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Equal(t, "ok", response["status"])
}

func TestExportGraph_MissingURI(t *testing.T) {
	mapper, err := buildMapper(&config.Config{}, zap.NewNop())
	require.NoError(t, err)

	err = exportGraph(context.Background(), &config.Config{}, mapper.Store())
	require.Error(t, err)
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeConfig))
}
