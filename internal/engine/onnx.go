package engine

import (
	"fmt"
	"path/filepath"
	"runtime"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ortEnv manages global ONNX Runtime initialization (process-wide singleton).
var ortEnv struct {
	once sync.Once
	err  error
}

// initORT initializes the ONNX Runtime environment. Safe to call multiple
// times; only the first call has any effect.
func initORT(libPath string) error {
	ortEnv.once.Do(func() {
		ort.SetSharedLibraryPath(libPath)
		ortEnv.err = ort.InitializeEnvironment()
	})
	return ortEnv.err
}

// onnxSession wraps a DynamicAdvancedSession for a single-input image
// classifier producing one logit vector per image.
type onnxSession struct {
	session    *ort.DynamicAdvancedSession
	inputName  string
	outputName string
	numClasses int64
}

// NewONNXLoader returns a LoaderFunc that loads the classifier at modelPath
// and validates its tensor layout against the expected class count. The
// ONNX Runtime shared library is expected alongside the model file.
func NewONNXLoader(modelPath string, numClasses int) LoaderFunc {
	return func() (Session, error) {
		return newONNXSession(modelPath, int64(numClasses))
	}
}

func newONNXSession(modelPath string, numClasses int64) (*onnxSession, error) {
	libPath := filepath.Join(filepath.Dir(modelPath), sharedLibraryName())
	if err := initORT(libPath); err != nil {
		return nil, fmt.Errorf("onnx: failed to initialize runtime: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to read model info: %w", err)
	}

	if len(inputs) != 1 {
		return nil, fmt.Errorf("onnx: expected a single input tensor, got %d", len(inputs))
	}
	if dims := inputs[0].Dimensions; len(dims) != 4 {
		return nil, fmt.Errorf("onnx: expected 4D image input tensor, got %v", dims)
	}

	if len(outputs) == 0 {
		return nil, fmt.Errorf("onnx: model has no outputs")
	}
	outDims := outputs[0].Dimensions
	if len(outDims) != 2 {
		return nil, fmt.Errorf("onnx: expected 2D logit output tensor, got %v", outDims)
	}
	if outDims[1] != numClasses {
		return nil, fmt.Errorf("onnx: model emits %d classes, engine expects %d", outDims[1], numClasses)
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create session options: %w", err)
	}
	defer opts.Destroy()
	opts.SetIntraOpNumThreads(4)
	opts.SetInterOpNumThreads(1)

	session, err := ort.NewDynamicAdvancedSession(
		modelPath,
		[]string{inputs[0].Name},
		[]string{outputs[0].Name},
		opts,
	)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create session: %w", err)
	}

	return &onnxSession{
		session:    session,
		inputName:  inputs[0].Name,
		outputName: outputs[0].Name,
		numClasses: numClasses,
	}, nil
}

// Run executes a single forward pass. tensor is a flat CHW image tensor and
// shape its [batch, channels, height, width] dimensions. Returns the raw
// logit vector.
func (s *onnxSession) Run(tensor []float32, shape []int64) ([]float32, error) {
	in, err := ort.NewTensor(ort.NewShape(shape...), tensor)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create input tensor: %w", err)
	}
	defer in.Destroy()

	out, err := ort.NewEmptyTensor[float32](ort.NewShape(shape[0], s.numClasses))
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create output tensor: %w", err)
	}
	defer out.Destroy()

	if err := s.session.Run([]ort.Value{in}, []ort.Value{out}); err != nil {
		return nil, fmt.Errorf("onnx: inference failed: %w", err)
	}

	// Copy data out before the tensor is destroyed.
	src := out.GetData()
	result := make([]float32, len(src))
	copy(result, src)
	return result, nil
}

// Close releases the ONNX session resources.
func (s *onnxSession) Close() error {
	return s.session.Destroy()
}

func sharedLibraryName() string {
	switch runtime.GOOS {
	case "darwin":
		return "libonnxruntime.dylib"
	case "windows":
		return "onnxruntime.dll"
	default:
		return "libonnxruntime.so"
	}
}
