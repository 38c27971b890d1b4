package inference

import (
	"context"
	"os"
	"sync"

	"github.com/nvr-ai/go-plantdx/preprocess"
	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// LinearClassifier is a linear head, scores = W·x + b, over the flattened CHW input.
//
// It runs in-process on a gorgonia tape machine and needs no native runtime. The graph holds
// one input node, so calls to Run are serialized.
type LinearClassifier struct {
	mu      sync.Mutex
	side    int
	classes int
	input   *G.Node
	scores  *G.Node
	vm      G.VM
	closed  bool
}

// NewLinearClassifier builds the graph for weights of shape [classes, 3*side*side] and a bias
// of shape [classes]. Both must be float32.
func NewLinearClassifier(side int, weights, bias *tensor.Dense) (*LinearClassifier, error) {
	if side < 1 {
		return nil, errors.Wrapf(ErrModelUnavailable, "invalid input side %d", side)
	}
	features := preprocess.Channels * side * side

	if weights == nil || bias == nil {
		return nil, errors.Wrap(ErrModelUnavailable, "weights and bias are required")
	}
	if weights.Dtype() != tensor.Float32 || bias.Dtype() != tensor.Float32 {
		return nil, errors.Wrapf(ErrModelUnavailable, "weights must be float32, got %v and %v", weights.Dtype(), bias.Dtype())
	}
	ws := weights.Shape()
	if len(ws) != 2 || ws[1] != features {
		return nil, errors.Wrapf(ErrModelUnavailable, "weights shape %v, want [classes %d]", ws, features)
	}
	classes := ws[0]
	if bs := bias.Shape(); !(len(bs) == 1 && bs[0] == classes) {
		return nil, errors.Wrapf(ErrModelUnavailable, "bias shape %v, want [%d]", bs, classes)
	}

	g := G.NewGraph()
	input := G.NewTensor(g, tensor.Float32, 4,
		G.WithShape(1, preprocess.Channels, side, side), G.WithName("input"))
	w := G.NewMatrix(g, tensor.Float32, G.WithShape(classes, features), G.WithName("weights"), G.WithValue(weights))
	b := G.NewVector(g, tensor.Float32, G.WithShape(classes), G.WithName("bias"), G.WithValue(bias))

	flat, err := G.Reshape(input, tensor.Shape{features})
	if err != nil {
		return nil, errors.Wrap(ErrModelUnavailable, err.Error())
	}
	wx, err := G.Mul(w, flat)
	if err != nil {
		return nil, errors.Wrap(ErrModelUnavailable, err.Error())
	}
	scores, err := G.Add(wx, b)
	if err != nil {
		return nil, errors.Wrap(ErrModelUnavailable, err.Error())
	}

	return &LinearClassifier{
		side:    side,
		classes: classes,
		input:   input,
		scores:  scores,
		vm:      G.NewTapeMachine(g),
	}, nil
}

// LoadLinearClassifier reads the weights and bias from .npy files.
func LoadLinearClassifier(side int, weightsPath, biasPath string) (*LinearClassifier, error) {
	weights, err := readNpy(weightsPath)
	if err != nil {
		return nil, err
	}
	bias, err := readNpy(biasPath)
	if err != nil {
		return nil, err
	}
	return NewLinearClassifier(side, weights, bias)
}

func readNpy(path string) (*tensor.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(ErrModelUnavailable, "open %s: %v", path, err)
	}
	defer f.Close()

	d := new(tensor.Dense)
	if err := d.ReadNpy(f); err != nil {
		return nil, errors.Wrapf(ErrModelUnavailable, "read %s: %v", path, err)
	}
	return d, nil
}

// Classes returns the length of the score vector.
func (c *LinearClassifier) Classes() int {
	return c.classes
}

// Run evaluates the linear head on one tensor.
func (c *LinearClassifier) Run(ctx context.Context, input *preprocess.Tensor) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkInput(input, c.side); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, errors.Wrap(ErrModelUnavailable, "classifier closed")
	}
	defer c.vm.Reset()

	if err := G.Let(c.input, input.Dense()); err != nil {
		return nil, errors.Wrap(ErrInferenceFailed, err.Error())
	}
	if err := c.vm.RunAll(); err != nil {
		return nil, errors.Wrap(ErrInferenceFailed, err.Error())
	}

	data, ok := c.scores.Value().Data().([]float32)
	if !ok {
		return nil, errors.Wrapf(ErrInferenceFailed, "unexpected score type %T", c.scores.Value().Data())
	}
	out := make([]float32, len(data))
	copy(out, data)
	return out, nil
}

// Close releases the tape machine.
func (c *LinearClassifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	return c.vm.Close()
}
