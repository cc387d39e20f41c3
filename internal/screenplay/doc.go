// Package screenplay defines the scene model shared by every parser and the
// deterministic pieces of scene recognition: the heading grammar and the
// text splitter.
//
// Documents are produced once by a parser and immutable afterwards. Scene
// numbers are always assigned sequentially by the pipeline, never trusted
// from input or model output. The heading grammar understands English and
// German slug lines case-insensitively; anything it cannot place degrades to
// UNKNOWN rather than failing the document.
package screenplay
