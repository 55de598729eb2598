// Package processing runs capture jobs. A job pairs a model (per action
// kind: image, collage, animation, video, multicamera) with a state machine
// that sequences countdown, capture, approval, and composition phases. The
// service enforces the single-job invariant and feeds user decisions into the
// running machine through a bounded command queue.
package processing
