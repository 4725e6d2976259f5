package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	s, err := New(Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	if err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		s.Close()
	})
	return ts
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = byte(i * 7)
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Pix[img.PixOffset(x, y)+3] = 255
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// postForm sends a multipart form. A non-nil file is sent as the carrier part.
func postForm(url string, fields map[string]string, filename string, file []byte) (*http.Response, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	if file != nil {
		fw, err := mw.CreateFormFile("carrier", filename)
		if err != nil {
			return nil, err
		}
		fw.Write(file)
	}
	mw.Close()
	return http.Post(url, mw.FormDataContentType(), &body)
}

func post(t *testing.T, url string, fields map[string]string, filename string, file []byte) *http.Response {
	t.Helper()
	resp, err := postForm(url, fields, filename, file)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestEncodeThenDecodeByID(t *testing.T) {
	ts := newTestServer(t)

	resp := post(t, ts.URL+"/api/encode", map[string]string{"message": "hidden", "key": "k"}, "cover.png", pngBytes(t, 32, 32))
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		t.Fatalf("encode status = %d: %s", resp.StatusCode, b)
	}
	id := resp.Header.Get("X-Carrier-Id")
	if id == "" {
		t.Fatal("missing X-Carrier-Id")
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(resp.Header.Get("Content-Disposition"), "cover_stego.png") {
		t.Errorf("Content-Disposition = %q", resp.Header.Get("Content-Disposition"))
	}
	encoded, _ := io.ReadAll(resp.Body)
	if _, err := png.Decode(bytes.NewReader(encoded)); err != nil {
		t.Fatalf("encoded output is not a PNG: %v", err)
	}

	var got struct {
		Message string `json:"message"`
		Found   bool   `json:"found"`
	}
	resp = post(t, ts.URL+"/api/decode", map[string]string{"carrier_id": id, "key": "k"}, "", nil)
	decodeJSON(t, resp, &got)
	if !got.Found || got.Message != "hidden" {
		t.Errorf("decode by id = %+v", got)
	}

	// The downloaded result decodes the same when uploaded again.
	resp = post(t, ts.URL+"/api/decode", map[string]string{"key": "k"}, "again.png", encoded)
	got.Message, got.Found = "", false
	decodeJSON(t, resp, &got)
	if got.Message != "hidden" {
		t.Errorf("decode upload = %+v", got)
	}

	resp = post(t, ts.URL+"/api/decode", map[string]string{"carrier_id": id, "key": "wrong"}, "", nil)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("wrong key status = %d, want 422", resp.StatusCode)
	}
}

func TestDecodeNothingHidden(t *testing.T) {
	ts := newTestServer(t)
	resp := post(t, ts.URL+"/api/decode", nil, "plain.png", pngBytes(t, 4, 4))
	var got struct {
		Message string `json:"message"`
		Found   bool   `json:"found"`
	}
	decodeJSON(t, resp, &got)
	if resp.StatusCode != http.StatusOK || got.Found {
		t.Errorf("status %d, %+v", resp.StatusCode, got)
	}
}

func TestCapacity(t *testing.T) {
	ts := newTestServer(t)
	resp := post(t, ts.URL+"/api/capacity", nil, "c.png", pngBytes(t, 10, 10))
	var got struct {
		Medium string `json:"medium"`
		Bits   int64  `json:"bits"`
		Bytes  int64  `json:"bytes"`
		Human  string `json:"human"`
	}
	decodeJSON(t, resp, &got)
	if got.Medium != "image" || got.Bits != 300 || got.Bytes != (300-64)/8 {
		t.Errorf("capacity = %+v", got)
	}
	if got.Human == "" {
		t.Error("missing human-readable capacity")
	}
}

func TestErrorStatus(t *testing.T) {
	ts := newTestServer(t)
	tests := []struct {
		name   string
		fields map[string]string
		file   string
		data   []byte
		want   int
	}{
		{"no carrier", map[string]string{"message": "x"}, "", nil, http.StatusBadRequest},
		{"unsupported", map[string]string{"message": "x"}, "notes.txt", []byte("hi"), http.StatusBadRequest},
		{"mp4", map[string]string{"message": "x"}, "clip.mp4", []byte("hi"), http.StatusBadRequest},
		{"unknown id", map[string]string{"message": "x", "carrier_id": "nope"}, "", nil, http.StatusNotFound},
		{"too long", map[string]string{"message": strings.Repeat("x", 64)}, "tiny.png", pngBytes(t, 4, 4), http.StatusRequestEntityTooLarge},
		{"append image", map[string]string{"message": "x", "append": "true"}, "a.png", pngBytes(t, 8, 8), http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := post(t, ts.URL+"/api/encode", tt.fields, tt.file, tt.data)
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestCoverAndAssets(t *testing.T) {
	ts := newTestServer(t)

	body := strings.NewReader(`{"format":"png","width":16,"height":8,"color":"#336699"}`)
	resp, err := http.Post(ts.URL+"/api/cover", "application/json", body)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("cover status = %d", resp.StatusCode)
	}
	img, err := png.Decode(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 16 || b.Dy() != 8 {
		t.Errorf("cover bounds = %v", b)
	}
	if c := color.NRGBAModel.Convert(img.At(0, 0)).(color.NRGBA); c.R != 0x33 || c.G != 0x66 || c.B != 0x99 {
		t.Errorf("cover color = %v", c)
	}
	id := resp.Header.Get("X-Carrier-Id")

	list, err := http.Get(ts.URL + "/api/carriers")
	if err != nil {
		t.Fatal(err)
	}
	defer list.Body.Close()
	var assets []asset
	decodeJSON(t, list, &assets)
	if len(assets) != 1 || assets[0].ID != id || assets[0].Medium != "image" {
		t.Errorf("assets = %+v", assets)
	}

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/carriers/"+id, nil)
	del, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	del.Body.Close()
	if del.StatusCode != http.StatusOK {
		t.Errorf("delete status = %d", del.StatusCode)
	}
	get, err := http.Get(ts.URL + "/api/carriers/" + id)
	if err != nil {
		t.Fatal(err)
	}
	get.Body.Close()
	if get.StatusCode != http.StatusNotFound {
		t.Errorf("get after delete status = %d", get.StatusCode)
	}
}

func TestConcurrentAppendsKeepEveryMessage(t *testing.T) {
	ts := newTestServer(t)

	body := strings.NewReader(`{"format":"avi","width":64,"height":48,"duration":2,"fps":10,"lossless":true,"color":"#406080","noise":6,"seed":5}`)
	resp, err := http.Post(ts.URL+"/api/cover", "application/json", body)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("cover status = %d", resp.StatusCode)
	}

	resp = post(t, ts.URL+"/api/encode", map[string]string{"carrier_id": resp.Header.Get("X-Carrier-Id"), "message": "m0"}, "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("encode status = %d", resp.StatusCode)
	}
	target := resp.Header.Get("X-Carrier-Id")

	const n = 12
	want := []string{"m0"}
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 1; i <= n; i++ {
		msg := fmt.Sprintf("m%d", i)
		want = append(want, msg)
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := postForm(ts.URL+"/api/encode", map[string]string{
				"carrier_id": target,
				"target_id":  target,
				"append":     "true",
				"message":    msg,
			}, "", nil)
			if err != nil {
				errs <- err
				return
			}
			defer resp.Body.Close()
			io.Copy(io.Discard, resp.Body)
			if resp.StatusCode != http.StatusOK {
				errs <- fmt.Errorf("append %s: status %d", msg, resp.StatusCode)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	var got struct {
		Message string `json:"message"`
	}
	decodeJSON(t, post(t, ts.URL+"/api/decode", map[string]string{"carrier_id": target}, "", nil), &got)
	lines := strings.Split(got.Message, "\n")
	slices.Sort(lines)
	slices.Sort(want)
	if !slices.Equal(lines, want) {
		t.Errorf("recovered %d messages %q, want %q", len(lines), lines, want)
	}
}

func TestAppendUnknownTarget(t *testing.T) {
	ts := newTestServer(t)
	resp := post(t, ts.URL+"/api/encode", map[string]string{"append": "true", "target_id": "missing", "message": "x"}, "a.avi", []byte("RIFF"))
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestCoverRejectsOversize(t *testing.T) {
	ts := newTestServer(t)
	for _, body := range []string{
		`{"format":"png","width":100000,"height":100000}`,
		`{"format":"avi","width":640,"height":480,"duration":100000}`,
		`{"format":"avi","fps":100000}`,
	} {
		resp, err := http.Post(ts.URL+"/api/cover", "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", body, resp.StatusCode)
		}
	}

	list, err := http.Get(ts.URL + "/api/carriers")
	if err != nil {
		t.Fatal(err)
	}
	defer list.Body.Close()
	var assets []asset
	decodeJSON(t, list, &assets)
	if len(assets) != 0 {
		t.Errorf("rejected covers were stored: %+v", assets)
	}
}
