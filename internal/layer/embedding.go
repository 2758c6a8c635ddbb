package layer

import (
	"context"

	"github.com/pkg/errors"

	"github.com/born-ml/born-dist/internal/dist"
	"github.com/born-ml/born-dist/internal/model"
	"github.com/born-ml/born-dist/internal/parallel"
	"github.com/born-ml/born-dist/internal/tensor"
	"github.com/born-ml/born-dist/internal/weights"
)

// EmbeddingType is the type name of embedding layers.
const EmbeddingType = "embedding"

// EmbeddingConfig configures an embedding layer.
type EmbeddingConfig struct {
	NumEmbeddings int // Size of the dictionary
	EmbeddingDim  int // Length of each embedding vector
	PaddingIdx    int // Dictionary column with zero value and gradient; -1 for none
	Seed          uint64
}

// Embedding maps integer indices to learned vectors.
//
// The dictionary is an EmbeddingDim × NumEmbeddings weights matrix
// replicated on every rank, so lookups need no communication. Input entries
// are floored to indices; an index outside [0, NumEmbeddings), including
// NaN, produces a zero vector and contributes no gradient.
//
// Architecture:
//   - Input: [S...] indices per sample
//   - Output: [S..., EmbeddingDim] per sample
//   - Backward: output gradients scatter-add into dictionary columns
type Embedding[T tensor.Float] struct {
	Base[T]
	numEmbeddings int
	embeddingDim  int
	paddingIdx    int
	seed          uint64

	ops      scalarOps[T]
	parallel parallel.Config
	kernel   embeddingKernel[T]
	dictGrad *dist.DistMatrix[T]
}

// NewEmbedding creates an embedding layer. Only the data-parallel layout is
// supported.
func NewEmbedding[T tensor.Float](m *model.Model[T], name string, layout tensor.Layout, device tensor.Device, cfg EmbeddingConfig) (*Embedding[T], error) {
	l := &Embedding[T]{
		Base:          newBase(m, name, EmbeddingType, layout, device, 1),
		numEmbeddings: cfg.NumEmbeddings,
		embeddingDim:  cfg.EmbeddingDim,
		paddingIdx:    cfg.PaddingIdx,
		seed:          cfg.Seed,
		ops:           opsFor[T](),
		parallel:      parallel.DefaultConfig(),
	}
	if name == "" {
		return nil, l.setupErrorf("name is empty")
	}
	if layout != tensor.DataParallel {
		return nil, l.setupErrorf("%s layout is not supported", layout)
	}
	if cfg.NumEmbeddings <= 0 || cfg.EmbeddingDim <= 0 {
		return nil, l.setupErrorf("num_embeddings and embedding_dim must be positive, got %d and %d",
			cfg.NumEmbeddings, cfg.EmbeddingDim)
	}
	return l, nil
}

// NumEmbeddings returns the dictionary size.
func (l *Embedding[T]) NumEmbeddings() int { return l.numEmbeddings }

// EmbeddingDim returns the embedding vector length.
func (l *Embedding[T]) EmbeddingDim() int { return l.embeddingDim }

// PaddingIdx returns the padding index, or -1.
func (l *Embedding[T]) PaddingIdx() int { return l.paddingIdx }

// SetParallel overrides the CPU worker configuration.
func (l *Embedding[T]) SetParallel(cfg parallel.Config) { l.parallel = cfg }

// Dictionary returns the weights' local values, or nil before SetupData.
func (l *Embedding[T]) Dictionary() *dist.DistMatrix[T] {
	if len(l.weights) != 1 {
		return nil
	}
	return l.weights[0].ValuesSharded()
}

// hasPadding reports whether the padding index names a dictionary column.
func (l *Embedding[T]) hasPadding() bool {
	return l.paddingIdx >= 0 && l.paddingIdx < l.numEmbeddings
}

// SetupDims appends EmbeddingDim to the input dimensions.
func (l *Embedding[T]) SetupDims() error {
	return l.setupDims(func(in []tensor.Shape) (tensor.Shape, error) {
		return in[0].Append(l.embeddingDim), nil
	})
}

// SetupData creates the dictionary weights on first use, allocates the
// matrices and selects the compute kernel.
func (l *Embedding[T]) SetupData(maxMiniBatch int) error {
	if err := l.allocate(maxMiniBatch); err != nil {
		return err
	}

	if len(l.weights) == 0 {
		w := weights.New[T](l.Comm())
		w.SetName(l.name + "_weights")
		w.SetInitializer(weights.NewNormal[T](0, 1, l.seed))
		w.SetOptimizer(l.model.CreateOptimizer())
		if err := l.model.AddWeights(w); err != nil {
			return l.setupErrorf("register weights: %v", err)
		}
		l.weights = []*weights.Weights[T]{w}
	}
	if len(l.weights) != 1 {
		return l.setupErrorf("expected exactly one weights, got %d", len(l.weights))
	}
	dict := l.weights[0]
	dict.SetDims(tensor.Shape{l.embeddingDim}, tensor.Shape{l.numEmbeddings})
	dict.SetMatrixDistribution(dist.DistData{ColDist: dist.STAR, RowDist: dist.STAR})
	if err := dict.Setup(); err != nil {
		return errors.Wrapf(err, "embedding layer %q", l.name)
	}

	if l.hasPadding() {
		clear(dict.ValuesSharded().Local().Column(l.paddingIdx))
	}

	if l.dictGrad == nil {
		l.dictGrad = dist.NewDistMatrix[T](l.Comm(), dist.DistData{ColDist: dist.STAR, RowDist: dist.STAR})
	}
	l.dictGrad.Resize(l.embeddingDim, l.numEmbeddings)

	kernel, err := l.selectKernel()
	if err != nil {
		return err
	}
	l.kernel = kernel
	l.markAllocated()
	return nil
}

// SetWeights replaces the dictionary weights. The weights' numeric kind
// must match the layer's.
func (l *Embedding[T]) SetWeights(ws ...weights.Handle) error {
	typed := make([]*weights.Weights[T], 0, len(ws))
	for _, h := range ws {
		w, ok := h.(*weights.Weights[T])
		if !ok {
			return l.setupErrorf("weights %q are %s, layer is %s", h.Name(), h.DataType(), l.DataType())
		}
		typed = append(typed, w)
	}
	l.Base.SetWeights(typed...)
	return nil
}

// FPCompute gathers one dictionary column per input entry.
func (l *Embedding[T]) FPCompute(_ context.Context) error {
	if err := l.ready("fp_compute"); err != nil {
		return err
	}
	dict := l.weights[0].ValuesSharded().Local()
	return l.kernel.gather(dict, l.PrevActivations(0).Local(), l.activations.Local(), l.embeddingDim, l.numEmbeddings)
}

// BPCompute scatter-adds the output gradient into the dictionary gradient.
// The padding column is zeroed after all contributions are summed.
func (l *Embedding[T]) BPCompute(_ context.Context) error {
	if err := l.ready("bp_compute"); err != nil {
		return err
	}
	// Indices carry no gradient.
	l.errorSignals[0].Zero()

	opt := l.weights[0].Optimizer()
	if opt == nil {
		return nil
	}
	grad := l.dictGrad.Local()
	grad.Zero()
	if err := l.kernel.scatterAdd(grad, l.PrevActivations(0).Local(), l.PrevErrorSignals().Local(), l.embeddingDim, l.numEmbeddings); err != nil {
		return err
	}
	if l.hasPadding() {
		clear(grad.Column(l.paddingIdx))
	}

	dst := opt.GradientBuffer().Local()
	for j := 0; j < dst.Width(); j++ {
		d, s := dst.Column(j), grad.Column(j)
		for i := range d {
			d[i] += s[i]
		}
	}
	return nil
}

// Description returns the layer's build description.
func (l *Embedding[T]) Description() Description {
	d := l.describe()
	d.NumEmbeddings = l.numEmbeddings
	d.EmbeddingDim = l.embeddingDim
	d.Seed = l.seed
	if l.paddingIdx >= 0 {
		p := l.paddingIdx
		d.PaddingIdx = &p
	}
	return d
}

// Clone returns a layer with the same configuration and no links or
// weights.
func (l *Embedding[T]) Clone() *Embedding[T] {
	return &Embedding[T]{
		Base:          l.cloneBase(),
		numEmbeddings: l.numEmbeddings,
		embeddingDim:  l.embeddingDim,
		paddingIdx:    l.paddingIdx,
		seed:          l.seed,
		ops:           l.ops,
		parallel:      l.parallel,
	}
}
