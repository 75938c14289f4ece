// ABOUTME: POST /predict handler: JSON feature object in, rounded stress score out.
// ABOUTME: Values may be JSON numbers or numeric strings, as browser forms send.
package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/harperreed/stress/internal/predict"
	"go.uber.org/zap"
)

const noDataMessage = "No data was provided"

var errNoData = errors.New(noDataMessage)

func (s *Server) handlePredict(c *gin.Context) {
	start := time.Now()

	row, err := decodeRow(c.Request.Body)
	if errors.Is(err, errNoData) {
		s.metrics.PredictionServed("bad_request", time.Since(start))
		c.JSON(http.StatusBadRequest, gin.H{"Error": noDataMessage})
		return
	}
	if err == nil {
		var score float64
		score, err = s.predictor.Predict(c.Request.Context(), row)
		if err == nil {
			s.metrics.PredictionServed("ok", time.Since(start))
			c.JSON(http.StatusOK, gin.H{"Prediction": round2(score)})
			return
		}
	}

	s.logPredictError(err)
	s.metrics.PredictionServed("error", time.Since(start))
	c.JSON(http.StatusInternalServerError, gin.H{"Error": err.Error()})
}

func (s *Server) logPredictError(err error) {
	var valErr *predict.ValidationError
	var notFound *predict.NotFoundError
	switch {
	case errors.As(err, &valErr):
		s.logger.Warn("prediction rejected", zap.Error(err), zap.Strings("fields", valErr.Fields))
	case errors.As(err, &notFound):
		s.logger.Error("prediction without model", zap.Error(err), zap.String("dir", notFound.Dir))
	default:
		s.logger.Error("prediction failed", zap.Error(err))
	}
}

// decodeRow parses the request body. An empty body, null, or any empty or
// falsy JSON value yields errNoData.
func decodeRow(body io.Reader) (predict.Row, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read request: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, errNoData
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}

	switch t := v.(type) {
	case nil:
		return nil, errNoData
	case map[string]interface{}:
		if len(t) == 0 {
			return nil, errNoData
		}
		return toRow(t)
	case []interface{}:
		if len(t) == 0 {
			return nil, errNoData
		}
	case string:
		if t == "" {
			return nil, errNoData
		}
	case bool:
		if !t {
			return nil, errNoData
		}
	case json.Number:
		if f, err := t.Float64(); err == nil && f == 0 {
			return nil, errNoData
		}
	}
	return nil, fmt.Errorf("request must be a JSON object of feature values")
}

func toRow(obj map[string]interface{}) (predict.Row, error) {
	row := make(predict.Row, len(obj))
	for name, raw := range obj {
		switch v := raw.(type) {
		case nil:
			row[name] = math.NaN()
		case json.Number:
			f, err := v.Float64()
			if err != nil {
				return nil, fmt.Errorf("feature %q: %w", name, err)
			}
			row[name] = f
		case string:
			s := strings.TrimSpace(v)
			if s == "" || strings.EqualFold(s, "nan") {
				row[name] = math.NaN()
				continue
			}
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("feature %q: could not convert %q to a number", name, v)
			}
			row[name] = f
		default:
			return nil, fmt.Errorf("feature %q: unsupported value %v", name, v)
		}
	}
	return row, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
