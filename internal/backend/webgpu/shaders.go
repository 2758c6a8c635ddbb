package webgpu

// workgroupSize is the number of invocations per workgroup in every kernel.
const workgroupSize = 256

// embeddingGatherShader copies dictionary columns into the output:
// result[n*dim + k] = dict[idx(n)*dim + k], or 0 when idx(n) is not a valid
// column. Indices are floored; NaN fails the range test.
const embeddingGatherShader = `
@group(0) @binding(0) var<storage, read> dict: array<f32>;
@group(0) @binding(1) var<storage, read> indices: array<f32>;
@group(0) @binding(2) var<storage, read_write> result: array<f32>;

struct Params {
    num_indices: u32,
    embedding_dim: u32,
    num_embeddings: u32,
}
@group(0) @binding(3) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let idx = global_id.x;
    if (idx >= params.num_indices * params.embedding_dim) {
        return;
    }
    let n = idx / params.embedding_dim;
    let k = idx % params.embedding_dim;
    let v = floor(indices[n]);
    if (v >= 0.0 && v < f32(params.num_embeddings)) {
        result[idx] = dict[u32(v) * params.embedding_dim + k];
    } else {
        result[idx] = 0.0;
    }
}
`

// embeddingScatterAddShader accumulates output gradients into dictionary
// columns. Floats are added through a compare-exchange loop on their bit
// patterns so colliding indices sum correctly.
const embeddingScatterAddShader = `
@group(0) @binding(0) var<storage, read_write> grad: array<atomic<u32>>;
@group(0) @binding(1) var<storage, read> indices: array<f32>;
@group(0) @binding(2) var<storage, read> grad_out: array<f32>;

struct Params {
    num_indices: u32,
    embedding_dim: u32,
    num_embeddings: u32,
}
@group(0) @binding(3) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let idx = global_id.x;
    if (idx >= params.num_indices * params.embedding_dim) {
        return;
    }
    let n = idx / params.embedding_dim;
    let k = idx % params.embedding_dim;
    let v = floor(indices[n]);
    if (!(v >= 0.0 && v < f32(params.num_embeddings))) {
        return;
    }
    let dst = u32(v) * params.embedding_dim + k;
    let delta = grad_out[idx];
    var old = atomicLoad(&grad[dst]);
    loop {
        let updated = bitcast<u32>(bitcast<f32>(old) + delta);
        let r = atomicCompareExchangeWeak(&grad[dst], old, updated);
        if (r.exchanged) {
            break;
        }
        old = r.old_value;
    }
}
`

// crossEntropyForwardShader computes one partial loss per sample over the
// local prediction rows. label_height 0 selects distribution mode; otherwise
// truth holds label_height class indices per sample and local row r is
// global row row_shift + r*row_stride.
const crossEntropyForwardShader = `
@group(0) @binding(0) var<storage, read> pred: array<f32>;
@group(0) @binding(1) var<storage, read> truth: array<f32>;
@group(0) @binding(2) var<storage, read_write> loss: array<f32>;

struct Params {
    height: u32,
    label_height: u32,
    num_samples: u32,
    classes: u32,
    row_shift: u32,
    row_stride: u32,
}
@group(0) @binding(3) var<uniform> params: Params;

const EPS: f32 = 1.1920929e-07;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let n = global_id.x;
    if (n >= params.num_samples) {
        return;
    }
    var acc = 0.0;
    let base = n * params.height;
    if (params.label_height == 0u) {
        for (var row = 0u; row < params.height; row++) {
            acc += -truth[base + row] * log(max(pred[base + row], EPS));
        }
    } else {
        let s = params.label_height;
        for (var row = 0u; row < params.height; row++) {
            let g = params.row_shift + row * params.row_stride;
            let c = floor(truth[n * s + g % s]);
            if (c >= 0.0 && c < f32(params.classes) && u32(c) == g / s) {
                acc += -log(max(pred[base + row], EPS));
            }
        }
    }
    loss[n] = acc;
}
`

// crossEntropyBackwardShader computes the gradient of every local prediction
// entry and, in distribution mode, every ground-truth entry.
const crossEntropyBackwardShader = `
@group(0) @binding(0) var<storage, read> pred: array<f32>;
@group(0) @binding(1) var<storage, read> truth: array<f32>;
@group(0) @binding(2) var<storage, read> dloss: array<f32>;
@group(0) @binding(3) var<storage, read_write> dpred: array<f32>;
@group(0) @binding(4) var<storage, read_write> dtruth: array<f32>;

struct Params {
    height: u32,
    label_height: u32,
    num_samples: u32,
    classes: u32,
    row_shift: u32,
    row_stride: u32,
}
@group(0) @binding(5) var<uniform> params: Params;

const EPS: f32 = 1.1920929e-07;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let idx = global_id.x;
    if (idx >= params.height * params.num_samples) {
        return;
    }
    let n = idx / params.height;
    let row = idx % params.height;
    let g = dloss[n];
    let y = max(pred[idx], EPS);
    if (params.label_height == 0u) {
        dpred[idx] = -truth[idx] / y * g;
        dtruth[idx] = -log(y) * g;
        return;
    }
    let s = params.label_height;
    let gr = params.row_shift + row * params.row_stride;
    let c = floor(truth[n * s + gr % s]);
    if (c >= 0.0 && c < f32(params.classes) && u32(c) == gr / s) {
        dpred[idx] = -1.0 / y * g;
    } else {
        dpred[idx] = 0.0;
    }
}
`
