// Package pipeline runs record files through model.Assess on a worker pool and
// hands every result to a single Consumer.
package pipeline
