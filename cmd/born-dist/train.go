package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/pkg/errors"

	"github.com/born-ml/born-dist/internal/config"
	"github.com/born-ml/born-dist/internal/dist"
	"github.com/born-ml/born-dist/internal/distconv"
	"github.com/born-ml/born-dist/internal/layer"
	"github.com/born-ml/born-dist/internal/model"
	"github.com/born-ml/born-dist/internal/optim"
	"github.com/born-ml/born-dist/internal/tensor"
	"github.com/born-ml/born-dist/internal/tokenizer"
)

const sampleText = `the cat sat on the mat. the dog sat on the log.
the cat saw the dog and the dog saw the cat.
on the mat the cat sat and on the log the dog sat.`

type corpus struct {
	tok   tokenizer.Tokenizer
	vocab *tokenizer.Vocabulary
	seq   []int
}

func loadCorpus(text, encoding string, logger *slog.Logger) (*corpus, error) {
	tok, err := tokenizer.New(encoding)
	if err != nil {
		logger.Warn("falling back to byte tokenizer", "encoding", encoding, "err", err)
		tok = tokenizer.ByteTokenizer{}
	}
	ids, err := tok.Encode(text)
	if err != nil {
		return nil, errors.Wrap(err, "tokenize")
	}
	vocab := tokenizer.NewVocabulary()
	c := &corpus{tok: tok, vocab: vocab, seq: vocab.Add(ids)}
	logger.Info("corpus loaded", "tokenizer", tok.Name(), "tokens", len(ids), "vocabulary", vocab.Size())
	return c, nil
}

func train(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("train", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfgPath := fs.String("config", "", "YAML run configuration")
	textPath := fs.String("text", "", "training text file (default: built-in sample)")
	ranks := fs.Int("ranks", 0, "number of ranks (overrides config)")
	steps := fs.Int("steps", -1, "training steps (overrides config)")
	encoding := fs.String("tokenizer", "", `tiktoken encoding or "bytes" (overrides config)`)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}
	if *ranks > 0 {
		cfg.Ranks = *ranks
	}
	if *steps >= 0 {
		cfg.Steps = *steps
	}
	if *encoding != "" {
		cfg.Tokenizer = *encoding
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, _ := cfg.Level()
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	if cfg.Distconv {
		distconv.SetEnabled(true)
	}

	text := sampleText
	if *textPath != "" {
		data, err := os.ReadFile(*textPath)
		if err != nil {
			return errors.WithStack(err)
		}
		text = string(data)
	}
	c, err := loadCorpus(text, cfg.Tokenizer, logger)
	if err != nil {
		return err
	}

	dt, _ := tensor.ParseDataType(cfg.DataType)
	if dt == tensor.Float64 {
		return trainAs[float64](ctx, cfg, c, logger, stdout)
	}
	return trainAs[float32](ctx, cfg, c, logger, stdout)
}

// bigram predicts the next token from the current one: the embedding
// dictionary holds one row of logits per vocabulary entry.
type bigram[T tensor.Float] struct {
	emb   *layer.Embedding[T]
	probs *layer.Softmax[T]
	loss  *layer.CrossEntropy[T]
}

func newBigram[T tensor.Float](m *model.Model[T], device tensor.Device, vocab int, seed uint64, batch int) (*bigram[T], error) {
	emb, err := layer.NewEmbedding(m, "embed", tensor.DataParallel, device, layer.EmbeddingConfig{
		NumEmbeddings: vocab,
		EmbeddingDim:  vocab,
		PaddingIdx:    tokenizer.PaddingIndex,
		Seed:          seed,
	})
	if err != nil {
		return nil, err
	}
	probs, err := layer.NewSoftmax(m, "probs", tensor.DataParallel, device)
	if err != nil {
		return nil, err
	}
	loss, err := layer.NewCrossEntropy(m, "loss", tensor.DataParallel, device, false)
	if err != nil {
		return nil, err
	}
	if err := layer.Link[T](emb, probs, 0); err != nil {
		return nil, err
	}
	if err := layer.Link[T](probs, loss, 0); err != nil {
		return nil, err
	}

	emb.SetInputDims(0, tensor.Shape{1})
	loss.SetInputDims(1, tensor.Shape{1, vocab})
	net := &bigram[T]{emb: emb, probs: probs, loss: loss}
	for _, l := range net.layers() {
		if err := l.SetupDims(); err != nil {
			return nil, err
		}
	}
	for _, l := range net.layers() {
		if err := l.SetupData(batch); err != nil {
			return nil, err
		}
	}
	return net, nil
}

func (n *bigram[T]) layers() []layer.Layer[T] {
	return []layer.Layer[T]{n.emb, n.probs, n.loss}
}

// load fills the local samples of a mini-batch starting at sample offset.
func (n *bigram[T]) load(inputs, targets [][]T, offset, batch int) {
	in, truth, dout := n.emb.PrevActivations(0), n.loss.PrevActivations(1), n.loss.PrevErrorSignals()
	for j := 0; j < in.LocalWidth(); j++ {
		g := (offset + in.GlobalCol(j)) % len(inputs)
		in.Local().Set(0, j, inputs[g][0])
		col := truth.Local().Column(j)
		clear(col)
		if c, ok := tensor.Index(targets[g][0], len(col)); ok {
			col[c] = 1
		}
		dout.Local().Set(0, j, 1/T(batch))
	}
}

func (n *bigram[T]) step(ctx context.Context, m *model.Model[T]) error {
	for _, l := range n.layers() {
		if err := l.FPCompute(ctx); err != nil {
			return err
		}
	}
	for _, l := range []layer.Layer[T]{n.loss, n.probs, n.emb} {
		if err := l.BPCompute(ctx); err != nil {
			return err
		}
	}
	if err := m.Step(ctx); err != nil {
		return err
	}
	m.ClearGradients()
	return nil
}

// meanLoss averages the per-sample losses of the last forward pass over
// every rank.
func (n *bigram[T]) meanLoss(ctx context.Context, comm *dist.Comm) (float64, error) {
	out := n.loss.Activations()
	sum := []T{0}
	for j := 0; j < out.LocalWidth(); j++ {
		sum[0] += out.Local().At(0, j)
	}
	if err := dist.AllReduce(ctx, comm.WorldGroup(), sum, dist.Sum); err != nil {
		return 0, err
	}
	return float64(sum[0]) / float64(out.Width()), nil
}

// predictions returns the most likely successor of the first few tokens.
func (n *bigram[T]) predictions(c *corpus, limit int) []string {
	dict := n.emb.Dictionary().Local()
	seen := make(map[int]bool)
	var out []string
	for _, idx := range c.seq {
		if seen[idx] || len(out) == limit {
			continue
		}
		seen[idx] = true
		logits := dict.Column(idx)
		best := 1
		for r := 2; r < len(logits); r++ {
			if logits[r] > logits[best] {
				best = r
			}
		}
		from, _ := c.tok.Decode([]int32{c.vocab.Token(idx)})
		to, _ := c.tok.Decode([]int32{c.vocab.Token(best)})
		out = append(out, fmt.Sprintf("%q -> %q", from, to))
	}
	return out
}

func trainAs[T tensor.Float](ctx context.Context, cfg config.Run, c *corpus, logger *slog.Logger, stdout io.Writer) error {
	factory, err := optim.NewFactory[T](cfg.Optimizer)
	if err != nil {
		return err
	}
	device, _ := tensor.ParseDevice(cfg.Device)
	grid, err := dist.NewGrid(cfg.Ranks)
	if cfg.GridHeight > 0 {
		grid, err = dist.NewGridWithHeight(cfg.Ranks, cfg.GridHeight)
	}
	if err != nil {
		return err
	}
	inputs, targets := tokenizer.Bigrams[T](c.seq)
	if len(inputs) == 0 {
		return errors.New("training text needs at least two tokens")
	}

	var report []string
	var final float64
	err = dist.Launch(ctx, dist.NewWorld(grid), func(ctx context.Context, comm *dist.Comm) error {
		m := model.New(comm, model.WithOptimizer(factory), model.WithLogger[T](logger))
		net, err := newBigram(m, device, c.vocab.Size(), cfg.Seed, cfg.BatchSize)
		if err != nil {
			return err
		}
		every := max(cfg.Steps/10, 1)
		for s := 0; s < cfg.Steps; s++ {
			net.load(inputs, targets, s*cfg.BatchSize, cfg.BatchSize)
			if err := net.step(ctx, m); err != nil {
				return errors.Wrapf(err, "step %d", s)
			}
			if s%every == 0 || s == cfg.Steps-1 {
				loss, err := net.meanLoss(ctx, comm)
				if err != nil {
					return err
				}
				if comm.IsRoot() {
					m.Logger().Info("training", "step", s, "loss", loss)
					final = loss
				}
			}
		}
		if cfg.Checkpoint != "" {
			if err := m.SaveWeights(ctx, cfg.Checkpoint); err != nil {
				return err
			}
		}
		if comm.IsRoot() {
			report = net.predictions(c, 8)
		}
		return nil
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "grid %s, %d steps, final loss %.4f\n", grid, cfg.Steps, final)
	for _, line := range report {
		fmt.Fprintln(stdout, line)
	}
	return nil
}
