package middleware

import (
	"bufio"
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferedLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

// decodeLogRecords parses the JSON lines written by a buffered logger
func decodeLogRecords(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var records []map[string]any
	scanner := bufio.NewScanner(buf)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		var record map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &record))
		records = append(records, record)
	}
	require.NoError(t, scanner.Err())
	return records
}

func TestLogger_RequestRecord(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var logBuffer bytes.Buffer

	router := gin.New()
	router.Use(CorrelationID(), Logger(newBufferedLogger(&logBuffer)))
	router.GET("/listings/:id", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	listingID := uuid.NewString()
	correlationID := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/listings/"+listingID+"?page=2", nil)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set(CorrelationIDHeader, correlationID)
	router.ServeHTTP(httptest.NewRecorder(), req)

	records := decodeLogRecords(t, &logBuffer)
	require.Len(t, records, 1)
	record := records[0]
	assert.Equal(t, "INFO", record["level"])
	assert.Equal(t, "HTTP request", record["msg"])
	assert.Equal(t, "GET", record["method"])
	assert.Equal(t, "/listings/"+listingID+"?page=2", record["path"])
	assert.Equal(t, "/listings/:id", record["route"])
	assert.EqualValues(t, 200, record["status"])
	assert.Equal(t, "test-agent", record["user_agent"])
	assert.Equal(t, correlationID, record["correlation_id"])
	assert.Contains(t, record, "latency")
	assert.Contains(t, record, "client_ip")
	assert.NotContains(t, record, "user_id")
}

func TestLogger_ActingUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var logBuffer bytes.Buffer

	router := gin.New()
	router.Use(Logger(newBufferedLogger(&logBuffer)))
	router.POST("/listings", Identity(), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})

	userID := uuid.NewString()
	req := httptest.NewRequest(http.MethodPost, "/listings", strings.NewReader("{}"))
	req.Header.Set(UserIDHeader, userID)
	router.ServeHTTP(httptest.NewRecorder(), req)

	records := decodeLogRecords(t, &logBuffer)
	require.Len(t, records, 1)
	assert.EqualValues(t, 201, records[0]["status"])
	assert.Equal(t, userID, records[0]["user_id"])
	assert.NotContains(t, records[0], "correlation_id")
}

func TestLogger_LevelFollowsStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	testCases := map[int]string{
		http.StatusOK:                  "INFO",
		http.StatusUnauthorized:        "WARN",
		http.StatusConflict:            "WARN",
		http.StatusUnprocessableEntity: "WARN",
		http.StatusInternalServerError: "ERROR",
		http.StatusBadGateway:          "ERROR",
	}

	for status, level := range testCases {
		var logBuffer bytes.Buffer
		router := gin.New()
		router.Use(Logger(newBufferedLogger(&logBuffer)))
		router.GET("/status", func(c *gin.Context) {
			c.Status(status)
		})
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/status", nil))

		records := decodeLogRecords(t, &logBuffer)
		require.Len(t, records, 1)
		assert.Equal(t, level, records[0]["level"], "status %d", status)
	}
}
