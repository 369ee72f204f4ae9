// Package testsupport provides shared helpers for package tests: configs
// seeded with per-test temp directories and a ready-to-use job store.
package testsupport
