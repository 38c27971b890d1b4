package providers

import (
	"fmt"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

const (
	// OpenVINOProviderBackend uses Intel OpenVINO for inference optimization.
	OpenVINOProviderBackend ProviderBackend = "openvino"
)

// OpenVINOOptions contains arguments for the OpenVINO provider.
// See:
// https://onnxruntime.ai/docs/execution-providers/OpenVINO-ExecutionProvider.html#summary-of-options
type OpenVINOOptions struct {
	// Overrides the accelerator hardware type, e.g. "CPU", "GPU" or "NPU".
	DeviceType string `json:"deviceType" yaml:"deviceType"`
	// Precision hint: FP32, FP16 or ACCURACY.
	Precision string `json:"precision" yaml:"precision"`
	// Overrides the accelerator default number of threads. Zero leaves the default.
	NumOfThreads int `json:"numOfThreads" yaml:"numOfThreads"`
	// Overrides the number of streams. Zero leaves the default.
	NumStreams int `json:"numStreams" yaml:"numStreams"`
	// Directory for compiled blob caching.
	CacheDir string `json:"cacheDir" yaml:"cacheDir"`
}

func (OpenVINOOptions) isProviderOptions() {}

// settings renders the non-empty options as provider key/value pairs.
func (o OpenVINOOptions) settings() map[string]string {
	s := map[string]string{}
	if o.DeviceType != "" {
		s["device_type"] = o.DeviceType
	}
	if o.Precision != "" {
		s["precision"] = o.Precision
	}
	if o.NumOfThreads > 0 {
		s["num_of_threads"] = fmt.Sprintf("%d", o.NumOfThreads)
	}
	if o.NumStreams > 0 {
		s["num_streams"] = fmt.Sprintf("%d", o.NumStreams)
	}
	if o.CacheDir != "" {
		s["cache_dir"] = o.CacheDir
	}
	return s
}

// OpenVINOProvider implements the ExecutionProvider interface.
type OpenVINOProvider struct {
	options OpenVINOOptions
}

// NewOpenVINOProvider creates a new OpenVINO provider.
func NewOpenVINOProvider(options OpenVINOOptions) *OpenVINOProvider {
	return &OpenVINOProvider{options: options}
}

// Backend returns the backend of the OpenVINO provider.
func (p *OpenVINOProvider) Backend() ProviderBackend {
	return OpenVINOProviderBackend
}

// Options returns the options of the OpenVINO provider.
func (p *OpenVINOProvider) Options() ProviderOptions {
	return p.options
}

// Apply enables OpenVINO on the session options.
func (p *OpenVINOProvider) Apply(options *ort.SessionOptions) error {
	if err := options.AppendExecutionProviderOpenVINO(p.options.settings()); err != nil {
		return errors.Wrap(err, "error enabling OpenVINO")
	}
	return nil
}
