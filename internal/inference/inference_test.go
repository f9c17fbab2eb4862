package inference

import (
	"context"
	"encoding/json"
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/ironsheep/lesion-mcp/internal/imaging"
)

func grayMask(w, h int, x1, y1, x2, y2 int, level uint8) *image.Gray {
	m := image.NewGray(image.Rect(0, 0, w, h))
	for y := y1; y <= y2; y++ {
		for x := x1; x <= x2; x++ {
			m.SetGray(x, y, color.Gray{Y: level})
		}
	}
	return m
}

func newTestClient(t *testing.T) *Client {
	return NewClient(logs.NewTestingLog(t), 5*time.Second, NewGate(2))
}

func TestRemoteDetector_Detect(t *testing.T) {
	mask, err := imaging.EncodePNG(grayMask(40, 30, 5, 5, 14, 9, 230))
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		file, _, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		img, _, err := image.Decode(file)
		assert.NoError(t, err)
		assert.Equal(t, 40, img.Bounds().Dx())

		json.NewEncoder(w).Encode(map[string]any{
			"instances": []map[string]any{
				{"box": []float64{4.5, 4.5, 15.2, 10.1}, "label": 2, "score": 0.93, "mask": mask},
			},
		})
	}))
	defer srv.Close()

	d := &RemoteDetector{Client: newTestClient(t), URL: srv.URL + "/v1/detect"}
	raw, err := d.Detect(context.Background(), image.NewRGBA(image.Rect(0, 0, 40, 30)))
	require.NoError(t, err)
	require.Len(t, raw, 1)

	assert.Equal(t, 2, raw[0].Label)
	assert.Equal(t, 0.93, raw[0].Score)
	assert.Equal(t, 15.2, raw[0].Box.X2)
	assert.Equal(t, 50, raw[0].Mask.Binarize(0.5).Count())
	assert.InDelta(t, 230.0/255, float64(raw[0].Mask.At(5, 5)), 1e-6)
}

func TestRemoteDetector_MaskSizeMismatch(t *testing.T) {
	mask, err := imaging.EncodePNG(grayMask(10, 10, 0, 0, 1, 1, 255))
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"instances": []map[string]any{{"box": []float64{0, 0, 1, 1}, "label": 1, "score": 0.9, "mask": mask}},
		})
	}))
	defer srv.Close()

	d := &RemoteDetector{Client: newTestClient(t), URL: srv.URL}
	_, err = d.Detect(context.Background(), image.NewRGBA(image.Rect(0, 0, 20, 20)))
	assert.Error(t, err)
}

func TestRemoteEmbedderAndClassifier(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/embed", func(w http.ResponseWriter, r *http.Request) {
		var req embedRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		rows := make([][]float64, len(req.Images))
		for i := range rows {
			rows[i] = []float64{float64(i), 1, 2}
		}
		json.NewEncoder(w).Encode(featureMatrix{Features: rows})
	})
	mux.HandleFunc("/v1/classify", func(w http.ResponseWriter, r *http.Request) {
		var req featureMatrix
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		preds := make([]int, len(req.Features))
		for i, f := range req.Features {
			if f[0] > 0 {
				preds[i] = 1
			}
		}
		json.NewEncoder(w).Encode(predictResponse{Predictions: preds})
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := newTestClient(t)
	e := &RemoteEmbedder{Client: client, URL: srv.URL + "/v1/embed"}
	c := &RemoteClassifier{Client: client, URL: srv.URL + "/v1/classify"}

	batch := []image.Image{image.NewRGBA(image.Rect(0, 0, 4, 4)), image.NewRGBA(image.Rect(0, 0, 4, 4))}
	x, err := e.Embed(context.Background(), batch)
	require.NoError(t, err)
	rows, cols := x.Dims()
	assert.Equal(t, 2, rows)
	assert.Equal(t, 3, cols)

	preds, err := c.Predict(context.Background(), x)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, preds)

	assert.NoError(t, e.Health(context.Background()))
	assert.NoError(t, c.Health(context.Background()))
}

func TestClient_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "out of memory", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := &RemoteClassifier{Client: newTestClient(t), URL: srv.URL}
	_, err := c.Predict(context.Background(), mat.NewDense(1, 1, []float64{1}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "out of memory")

	assert.Error(t, c.Health(context.Background()))
}

func TestToDense_Ragged(t *testing.T) {
	_, err := toDense([][]float64{{1, 2}, {3}}, 2)
	assert.Error(t, err)

	_, err = toDense([][]float64{{1, 2}}, 2)
	assert.Error(t, err)
}

func TestGate_LimitsConcurrency(t *testing.T) {
	g := NewGate(2)
	var inFlight, peak int32

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			g.Do(context.Background(), func() error {
				n := atomic.AddInt32(&inFlight, 1)
				for {
					p := atomic.LoadInt32(&peak)
					if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				atomic.AddInt32(&inFlight, -1)
				return nil
			})
			done <- struct{}{}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestGate_CancelledContext(t *testing.T) {
	g := NewGate(1)
	block := make(chan struct{})
	go g.Do(context.Background(), func() error { <-block; return nil })
	time.Sleep(10 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := g.Do(ctx, func() error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
	close(block)
}
