package s3

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sync"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// NewMockForTests devuelve un *Store respaldado por un transport HTTP fake.
// Solo implementa PutObject, que es lo único que usa images.Store.
func NewMockForTests() (*Store, *MockTransport) {
	rt := &MockTransport{objects: make(map[string][]byte)}
	cfg, _ := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion("us-east-1"),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("AKIA", "SECRET", "")),
	)
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.HTTPClient = &http.Client{Transport: rt}
		o.UsePathStyle = true
		o.BaseEndpoint = aws.String("https://mock.s3.local")
		// El transport fake no decodifica aws-chunked; sin esto el SDK
		// envuelve el body con el trailer de checksum CRC32 por defecto.
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
	})
	return &Store{
		client:        client,
		bucket:        "mock-bucket",
		publicBaseURL: "https://mock.s3.local/mock-bucket",
	}, rt
}

// MockTransport guarda los objetos subidos para poder inspeccionarlos en tests.
type MockTransport struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (m *MockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodPut {
		return &http.Response{StatusCode: http.StatusNotImplemented, Body: io.NopCloser(bytes.NewReader(nil)), Header: http.Header{}}, nil
	}

	body, _ := io.ReadAll(req.Body)

	m.mu.Lock()
	m.objects[req.URL.Path] = body
	m.mu.Unlock()

	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(bytes.NewReader(nil)),
		Header:     http.Header{"ETag": {`"etag"`}},
	}, nil
}

// Stored devuelve el objeto subido en `path` (p.ej. "/mock-bucket/clave").
func (m *MockTransport) Stored(path string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.objects[path]
	return b, ok
}
