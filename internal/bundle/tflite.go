//go:build tflite

package bundle

import (
	"fmt"
	"os"
	"runtime"
	"sync"

	"github.com/tphakala/go-tflite"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/tphakala/voiceid/internal/logger"
)

// TFLiteClassifier runs a TensorFlow Lite model whose input is one feature
// row and whose first output tensor holds per-class scores.
type TFLiteClassifier struct {
	mu          sync.Mutex
	model       *tflite.Model
	interpreter *tflite.Interpreter
	inputSize   int
	classes     []int
}

func newTFLiteClassifier(path string, threads int, classes []int) (*TFLiteClassifier, error) {
	modelData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tflite model: %w", err)
	}

	model := tflite.NewModel(modelData)
	if model == nil {
		return nil, fmt.Errorf("cannot load TensorFlow Lite model %s", path)
	}

	if threads <= 0 {
		threads = max(1, runtime.NumCPU()/2)
	}

	options := tflite.NewInterpreterOptions()
	options.SetNumThread(threads)
	options.SetErrorReporter(func(msg string, _ any) {
		logger.Global().Module(componentName).Error("TFLite error", logger.String("message", msg))
	}, nil)

	interpreter := tflite.NewInterpreter(model, options)
	if interpreter == nil {
		model.Delete()
		return nil, fmt.Errorf("cannot create interpreter")
	}
	if status := interpreter.AllocateTensors(); status != tflite.OK {
		interpreter.Delete()
		model.Delete()
		return nil, fmt.Errorf("tensor allocation failed")
	}

	input := interpreter.GetInputTensor(0)
	output := interpreter.GetOutputTensor(0)
	if input == nil || output == nil {
		interpreter.Delete()
		model.Delete()
		return nil, fmt.Errorf("model has no input or output tensor")
	}

	ids, err := classIDs(classes, len(output.Float32s()))
	if err != nil {
		interpreter.Delete()
		model.Delete()
		return nil, err
	}

	return &TFLiteClassifier{
		model:       model,
		interpreter: interpreter,
		inputSize:   len(input.Float32s()),
		classes:     ids,
	}, nil
}

// Predict implements Classifier. Rows are run through the interpreter one
// at a time.
func (c *TFLiteClassifier) Predict(x mat.Matrix) ([]int, error) {
	if err := checkFeatures(x, c.inputSize); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.interpreter == nil {
		return nil, fmt.Errorf("interpreter is closed")
	}

	rows, cols := x.Dims()
	out := make([]int, rows)
	scores := make([]float64, len(c.classes))
	for i := range rows {
		input := c.interpreter.GetInputTensor(0).Float32s()
		for j := range cols {
			input[j] = float32(x.At(i, j))
		}
		if status := c.interpreter.Invoke(); status != tflite.OK {
			return nil, fmt.Errorf("tensor invoke failed: %v", status)
		}
		for j, v := range c.interpreter.GetOutputTensor(0).Float32s() {
			scores[j] = float64(v)
		}
		out[i] = c.classes[floats.MaxIdx(scores)]
	}
	return out, nil
}

// Close releases the interpreter and model.
func (c *TFLiteClassifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.interpreter != nil {
		c.interpreter.Delete()
		c.interpreter = nil
	}
	if c.model != nil {
		c.model.Delete()
		c.model = nil
	}
	return nil
}
