// Package vectorindex is the Vector Index (VX) component (spec §2, §4.4):
// a best-effort similarity index keyed by edge id, written over a Qdrant-
// compatible REST surface. Only the write path is in scope — VX is never
// queried by this service, only populated as a side channel.
package vectorindex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	pkgctxutil "github.com/ganesh47/cf-metadata-sys/internal/pkg/ctxutil"
	"github.com/ganesh47/cf-metadata-sys/internal/platform/logger"
)

const maxErrorBodyBytes = 1024

// Point is a single vector write: ID is the edge id it represents, Payload
// carries the metadata spec §4.4 requires (edge_id, from_node, to_node,
// org_id, relationship_type).
type Point struct {
	ID      string
	Vector  []float32
	Payload map[string]any
}

type VectorIndex interface {
	Upsert(ctx context.Context, points []Point) error
}

type vectorIndex struct {
	log     *logger.Logger
	cfg     Config
	baseURL string
	apiKey  string
	http    *http.Client
}

type qdrantEnvelope struct {
	Status json.RawMessage `json:"status"`
	Time   float64         `json:"time"`
}

func NewVectorIndex(log *logger.Logger, cfg Config) (VectorIndex, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	s := &vectorIndex{
		log:     log.With("service", "VectorIndex"),
		cfg:     cfg,
		baseURL: strings.TrimRight(cfg.URL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: 5 * time.Second},
	}

	log.Info("vector index selected", "url", s.baseURL, "collection", cfg.Collection, "vector_dim", cfg.VectorDim)
	return s, nil
}

func (s *vectorIndex) Upsert(ctx context.Context, points []Point) error {
	if s == nil || len(points) == 0 {
		return nil
	}
	const op = "upsert"

	qdrantPoints := make([]map[string]any, 0, len(points))
	for _, p := range points {
		id := strings.TrimSpace(p.ID)
		if id == "" {
			return opErr(op, OperationErrorValidation, "point id is required", nil)
		}
		if len(p.Vector) == 0 {
			return opErr(op, OperationErrorValidation, fmt.Sprintf("point %q has empty vector", id), nil)
		}
		if s.cfg.VectorDim > 0 && len(p.Vector) != s.cfg.VectorDim {
			return opErr(op, OperationErrorValidation, fmt.Sprintf(
				"point %q dimension mismatch: expected=%d got=%d", id, s.cfg.VectorDim, len(p.Vector),
			), nil)
		}
		qdrantPoints = append(qdrantPoints, map[string]any{
			"id":      id,
			"vector":  p.Vector,
			"payload": p.Payload,
		})
	}

	req := map[string]any{"points": qdrantPoints}
	return s.doJSON(ctx, op, http.MethodPut, s.collectionPath("/points?wait=true"), req)
}

func (s *vectorIndex) collectionPath(suffix string) string {
	return "/collections/" + s.cfg.Collection + suffix
}

func (s *vectorIndex) doJSON(ctx context.Context, op, method, path string, in any) error {
	var body io.Reader
	if in != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(in); err != nil {
			return opErr(op, OperationErrorEncodeFailed, "encode request failed", err)
		}
		body = &buf
	}

	req, err := http.NewRequestWithContext(pkgctxutil.Default(ctx), method, s.baseURL+path, body)
	if err != nil {
		return opErr(op, OperationErrorTransportFailed, "build request failed", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return classifyHTTPCallError(op, "vector index request failed", err)
	}
	defer resp.Body.Close()

	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 10*maxErrorBodyBytes))
	if readErr != nil {
		return opErr(op, OperationErrorDecodeFailed, "read response failed", readErr)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &OperationError{
			Code:       OperationErrorQueryFailed,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("vector index http status=%d body=%q", resp.StatusCode, truncateBody(raw)),
		}
	}

	var envelope qdrantEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return opErr(op, OperationErrorDecodeFailed, "decode response envelope failed", err)
	}
	if statusErr := parseEnvelopeStatus(envelope.Status); statusErr != "" {
		return &OperationError{Code: OperationErrorQueryFailed, Operation: op, StatusCode: resp.StatusCode, Message: statusErr}
	}
	return nil
}

func classifyHTTPCallError(op, message string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return opErr(op, OperationErrorTimeout, message, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return opErr(op, OperationErrorTimeout, message, err)
	}
	return opErr(op, OperationErrorTransportFailed, message, err)
}

func parseEnvelopeStatus(raw json.RawMessage) string {
	status := strings.TrimSpace(string(raw))
	if status == "" || status == "null" {
		return ""
	}
	var statusString string
	if err := json.Unmarshal(raw, &statusString); err == nil {
		if strings.EqualFold(statusString, "ok") {
			return ""
		}
		return fmt.Sprintf("vector index status=%q", statusString)
	}
	var statusObject struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &statusObject); err == nil && strings.TrimSpace(statusObject.Error) != "" {
		return strings.TrimSpace(statusObject.Error)
	}
	return fmt.Sprintf("vector index status=%s", status)
}

func truncateBody(raw []byte) string {
	if len(raw) <= maxErrorBodyBytes {
		return string(raw)
	}
	return string(raw[:maxErrorBodyBytes]) + "..."
}
