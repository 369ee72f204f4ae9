// Package services holds cross-cutting helpers shared by the external
// service clients: the failure taxonomy used to classify stage errors and
// context annotations that carry job identity through blocking calls.
package services
