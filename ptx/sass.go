// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ptx

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"golang.org/x/mod/semver"
)

// minToolkitVersion is the oldest CUDA toolkit whose assembler output
// is worth inspecting: earlier releases predate the instructions this
// package fuses towards.
const minToolkitVersion = "v8.0"

// DumpSASS assembles PTX through the CUDA toolchain and returns the
// machine-code disassembly. It is a debugging side channel: the result
// is never fed back into compilation, and any failure (missing tools,
// toolkit too old, assembly error) returns the empty string.
func DumpSASS(ctx context.Context, ptxAsm string, cfg BackendConfig) string {
	ptxas, err := exec.LookPath("ptxas")
	if err != nil {
		slog.Debug("sass dump skipped: ptxas not found")
		return ""
	}
	nvdisasm, err := exec.LookPath("nvdisasm")
	if err != nil {
		slog.Debug("sass dump skipped: nvdisasm not found")
		return ""
	}
	version := ptxasVersion(ctx, ptxas)
	if version == "" || semver.Compare(version, minToolkitVersion) < 0 {
		slog.Debug("sass dump skipped: toolkit too old", "version", version)
		return ""
	}
	dir, err := os.MkdirTemp("", "ptxgen-sass")
	if err != nil {
		return ""
	}
	defer os.RemoveAll(dir)
	src := filepath.Join(dir, "kernel.ptx")
	cubin := filepath.Join(dir, "kernel.cubin")
	if err := os.WriteFile(src, []byte(ptxAsm), 0o600); err != nil {
		return ""
	}
	out, err := exec.CommandContext(ctx, ptxas, "--gpu-name", cfg.CPU, "-o", cubin, src).CombinedOutput()
	if err != nil {
		slog.Debug("sass dump skipped: ptxas failed", "output", string(out))
		return ""
	}
	sass, err := exec.CommandContext(ctx, nvdisasm, cubin).Output()
	if err != nil {
		slog.Debug("sass dump skipped: nvdisasm failed")
		return ""
	}
	return string(sass)
}

// ptxasVersion extracts the toolkit release from ptxas --version as a
// canonical semantic version, or returns the empty string.
func ptxasVersion(ctx context.Context, ptxas string) string {
	out, err := exec.CommandContext(ctx, ptxas, "--version").Output()
	if err != nil {
		return ""
	}
	// The banner carries a line of the form
	//   Cuda compilation tools, release 12.4, V12.4.131
	_, after, found := strings.Cut(string(out), "release ")
	if !found {
		return ""
	}
	release, _, _ := strings.Cut(after, ",")
	v := "v" + strings.TrimSpace(release)
	if !semver.IsValid(v) {
		return ""
	}
	return v
}
