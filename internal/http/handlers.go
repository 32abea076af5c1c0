package http

import (
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goatnetwork/qlink/internal/db"
	"github.com/goatnetwork/qlink/internal/keystone/multipart"
	log "github.com/sirupsen/logrus"
)

const defaultHistoryLimit = 50

func (hs *HTTPServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"uptime":  time.Since(hs.started).String(),
		"version": Version,
	})
}

func (hs *HTTPServer) handleFragments(c *gin.Context) {
	var req FragmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	fragments := req.Fragments
	if req.Fragment != "" {
		fragments = append([]string{req.Fragment}, fragments...)
	}
	if len(fragments) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no fragments given"})
		return
	}

	var resp FragmentResponse
	for i, fragment := range fragments {
		res, err := hs.state.Receive(strings.TrimSpace(fragment))
		resp.Progress = res.Progress
		if err != nil {
			resp.Rejected = append(resp.Rejected, RejectedFragment{Index: i, Error: err.Error()})
			continue
		}
		resp.Accepted++
		if res.Decoded != nil {
			resp.Payloads = append(resp.Payloads, res.Decoded.Rendered.JSON)
		}
	}
	resp.Message = resp.Progress.Message()

	status := http.StatusOK
	if resp.Accepted == 0 {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, resp)
}

func (hs *HTTPServer) handleGetSession(c *gin.Context) {
	progress := hs.state.Progress()
	resp := SessionResponse{Progress: progress, Message: progress.Message()}
	if last := hs.state.LastDecoded(); last != nil {
		resp.Last = last.Rendered.JSON
		ts := last.DecodedAt.Unix()
		resp.DecodedAt = &ts
	}
	c.JSON(http.StatusOK, resp)
}

func (hs *HTTPServer) handleResetSession(c *gin.Context) {
	hs.state.Reset()
	c.JSON(http.StatusOK, gin.H{"status": "reset"})
}

func (hs *HTTPServer) handleEncode(c *gin.Context) {
	var req EncodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	data, err := hex.DecodeString(strings.TrimPrefix(req.DataHex, "0x"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "data_hex is not valid hex"})
		return
	}
	maxLen := req.MaxFragmentLen
	if maxLen <= 0 {
		maxLen = hs.opts.MaxFragmentLen
	}

	enc, err := multipart.NewEncoder(req.URType, data, maxLen)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, EncodeResponse{
		URType:       req.URType,
		IsMultipart:  enc.IsMultipart(),
		TotalParts:   enc.PartCount(),
		FrameDelayMs: hs.opts.FrameDelay.Milliseconds(),
		Parts:        enc.AllParts(),
	})
}

func (hs *HTTPServer) handleHistory(c *gin.Context) {
	dbm := hs.state.History()
	if dbm == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "scan history is disabled"})
		return
	}
	limit := defaultHistoryLimit
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	records, err := dbm.RecentScans(limit)
	if err != nil {
		log.Errorf("Failed to load scan history: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load scan history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records, "count": len(records)})
}

func (hs *HTTPServer) handleHistoryByCID(c *gin.Context) {
	dbm := hs.state.History()
	if dbm == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "scan history is disabled"})
		return
	}
	id, err := db.ParsePayloadCID(c.Param("cid"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid cid"})
		return
	}

	records, err := dbm.ScansByCID(id)
	if err != nil {
		log.Errorf("Failed to load scan history for %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load scan history"})
		return
	}
	if len(records) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "payload not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records, "count": len(records)})
}

func (hs *HTTPServer) handleMetricsWindow(c *gin.Context) {
	if hs.reporter == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "metrics are disabled"})
		return
	}
	c.JSON(http.StatusOK, hs.reporter.Latest())
}
