//go:build !(amd64 || arm64 || 386 || arm || riscv64 || loong64 || mipsle || mips64le || ppc64le || wasm)

package main

// ROM table words are decoded as little-endian; this engine has never been
// ported to a big-endian host and the assumption is not checked at runtime.
var _ = "gauntletsound requires a little-endian architecture" + 1
