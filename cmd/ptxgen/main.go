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

// ptxgen lowers a demonstration kernel for a CUDA target and prints
// the resulting LLVM module. It is a driver to inspect the lowering,
// not a full compiler: the frontend producing kernel IR lives
// elsewhere.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/pkg/errors"
	"github.com/ptx-org/ptxgen/build/ir"
	"github.com/ptx-org/ptxgen/ptx"
	"github.com/ptx-org/ptxgen/ptx/target"
	"gopkg.in/yaml.v3"
)

var (
	configFile = flag.String("config", "", "YAML target configuration file")
	output     = flag.String("o", "-", "output file for the LLVM module, - for stdout")
	sassFile   = flag.String("sass", "", "assemble a PTX file and print its SASS disassembly")
	verbose    = flag.Bool("v", false, "enable debug logging")
)

type config struct {
	Target struct {
		Features []string `yaml:"features"`
	} `yaml:"target"`
}

func loadTarget(path string) (*target.Target, error) {
	features := []target.Feature{target.CUDA}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		var cfg config
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, errors.Wrapf(err, "cannot parse %s", path)
		}
		features = features[:0]
		for _, name := range cfg.Target.Features {
			f, err := target.ParseFeature(name)
			if err != nil {
				return nil, err
			}
			features = append(features, f)
		}
	}
	return target.New(features...)
}

// demoBody is a dense vector copy under a block and a thread axis, the
// smallest kernel exercising the interesting lowering paths.
func demoBody() ir.Stmt {
	block := &ir.Var{T: ir.IntType(32, 1), Name: "k.__block_id_x"}
	thread := &ir.Var{T: ir.IntType(32, 1), Name: "k.__thread_id_x"}
	lane := ir.Add(ir.Mul(block, ir.Imm(256)), thread)
	index := &ir.Ramp{Base: ir.Mul(lane, ir.Imm(4)), Stride: ir.Imm(1), Lanes: 4}
	align := ir.ModulusRemainder{Modulus: 4, Remainder: 0}
	load := &ir.Load{T: ir.IntType(32, 4), Name: "in", Index: index, Align: align}
	body := &ir.Store{Name: "out", Value: load, Index: index, Align: align}
	return &ir.For{
		Name: "k.__block_id_x", Min: ir.Imm(0), Extent: ir.Imm(1024),
		Body: &ir.For{
			Name: "k.__thread_id_x", Min: ir.Imm(0), Extent: ir.Imm(256),
			Body: body,
		},
	}
}

func run() error {
	tgt, err := loadTarget(*configFile)
	if err != nil {
		return err
	}
	if *sassFile != "" {
		g, err := ptx.New(tgt)
		if err != nil {
			return err
		}
		asm, err := os.ReadFile(*sassFile)
		if err != nil {
			return err
		}
		sass := ptx.DumpSASS(context.Background(), string(asm), g.BackendConfig())
		if sass == "" {
			return errors.Errorf("no SASS produced for %s", *sassFile)
		}
		fmt.Print(sass)
		return nil
	}
	g, err := ptx.New(tgt)
	if err != nil {
		return err
	}
	args := []ir.DeviceArg{
		{Name: "in", T: ir.IntType(32, 1), IsBuffer: true},
		{Name: "out", T: ir.IntType(32, 1), IsBuffer: true},
	}
	if err := g.AddKernel("copy_demo", args, demoBody()); err != nil {
		return err
	}
	cfg := g.BackendConfig()
	slog.Debug("backend configuration",
		"march", cfg.MArch, "cpu", cfg.CPU, "features", cfg.Features, "loopopt", cfg.LoopOpt)
	out := os.Stdout
	if *output != "-" {
		out, err = os.Create(*output)
		if err != nil {
			return err
		}
		defer out.Close()
	}
	_, err = fmt.Fprint(out, g.Module().String())
	return err
}

func main() {
	flag.Parse()
	if *verbose {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "ptxgen: %v\n", err)
		os.Exit(1)
	}
}
