package classification

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	ort "github.com/yalue/onnxruntime_go"
)

// Session runs single forward passes. Implementations are not safe for
// concurrent use; callers hold a session for one request at a time.
type Session interface {
	Run(input *Tensor) ([]float32, error)
	Destroy()
}

// SessionOptions tunes ONNX Runtime sessions.
type SessionOptions struct {
	IntraOpThreads int
	InterOpThreads int
}

// ModelSession is an ONNX Runtime session bound to fixed input and
// output tensors.
type ModelSession struct {
	Session    *ort.AdvancedSession
	Input      *ort.Tensor[float32]
	Output     *ort.Tensor[float32]
	InputName  string
	OutputName string
}

// NewModelSession loads the model at modelPath. The ONNX Runtime
// environment must already be initialized.
func NewModelSession(modelPath string, numClasses int, opts SessionOptions) (*ModelSession, error) {
	if _, err := os.Stat(modelPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, newError(KindModelLoad, fmt.Sprintf("model file not found: %s", modelPath), nil)
		}
		return nil, newError(KindModelLoad, "stat model file", err)
	}
	if !ort.IsInitialized() {
		return nil, newError(KindModelLoad, "onnx runtime environment is not initialized", nil)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, newError(KindModelLoad, "read model inputs and outputs", err)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return nil, newError(KindModelLoad, "model declares no inputs or outputs", nil)
	}
	if dims := outputs[0].Dimensions; len(dims) > 0 {
		if last := dims[len(dims)-1]; last > 0 && int(last) != numClasses {
			return nil, newError(KindConfiguration,
				fmt.Sprintf("model outputs %d classes, label table has %d", last, numClasses), nil)
		}
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, newError(KindModelLoad, "create session options", err)
	}
	defer options.Destroy()

	if opts.IntraOpThreads > 0 {
		if err := options.SetIntraOpNumThreads(opts.IntraOpThreads); err != nil {
			return nil, newError(KindModelLoad, "set intra-op threads", err)
		}
	}
	if opts.InterOpThreads > 0 {
		if err := options.SetInterOpNumThreads(opts.InterOpThreads); err != nil {
			return nil, newError(KindModelLoad, "set inter-op threads", err)
		}
	}

	inputShape := ort.NewShape(1, InputHeight, InputWidth, InputChannels)
	outputShape := ort.NewShape(1, int64(numClasses))

	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, newError(KindModelLoad, "create input tensor", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		inputTensor.Destroy()
		return nil, newError(KindModelLoad, "create output tensor", err)
	}

	session, err := ort.NewAdvancedSession(
		modelPath,
		[]string{inputs[0].Name},
		[]string{outputs[0].Name},
		[]ort.ArbitraryTensor{inputTensor},
		[]ort.ArbitraryTensor{outputTensor},
		options,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, newError(KindModelLoad, "create session", err)
	}

	return &ModelSession{
		Session:    session,
		Input:      inputTensor,
		Output:     outputTensor,
		InputName:  inputs[0].Name,
		OutputName: outputs[0].Name,
	}, nil
}

// Run copies input into the bound tensor, runs the model and returns a
// copy of the scores for the single batch entry.
func (m *ModelSession) Run(input *Tensor) ([]float32, error) {
	dst := m.Input.GetData()
	if len(input.Data) != len(dst) {
		return nil, newError(KindInference,
			fmt.Sprintf("input has %d values, model expects %d", len(input.Data), len(dst)), nil)
	}
	copy(dst, input.Data)

	if err := m.Session.Run(); err != nil {
		return nil, newError(KindInference, "model inference", err)
	}

	return append([]float32(nil), m.Output.GetData()...), nil
}

func (m *ModelSession) Destroy() {
	if m.Session != nil {
		m.Session.Destroy()
	}
	if m.Input != nil {
		m.Input.Destroy()
	}
	if m.Output != nil {
		m.Output.Destroy()
	}
}
