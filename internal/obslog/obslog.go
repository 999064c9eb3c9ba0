// Package obslog is a thin structured-logging wrapper around klog, used only
// on the tokenizer load path. Per-token logging would dominate actual work
// at scale, so nothing in the encode/decode hot path calls this package.
package obslog

import (
	"time"

	"github.com/google/uuid"
	"k8s.io/klog/v2"
)

// LoadStart logs the beginning of building a Vocabulary/Engine pair. loadID
// is carried on every log line for a given Tokenizer so that concurrently
// loaded instances can be told apart in aggregated logs.
func LoadStart(loadID uuid.UUID, model, pre string, vocabSize int) {
	klog.V(1).InfoS("loading tokenizer", "loadID", loadID, "model", model, "pre", pre, "vocabSize", vocabSize)
}

// LoadDone logs a successful load and how long it took.
func LoadDone(loadID uuid.UUID, model string, elapsed time.Duration) {
	klog.V(1).InfoS("tokenizer loaded", "loadID", loadID, "model", model, "elapsed", elapsed)
}

// LoadFailed logs a load failure, with the error that caused it.
func LoadFailed(loadID uuid.UUID, model string, err error) {
	klog.ErrorS(err, "tokenizer load failed", "loadID", loadID, "model", model)
}
