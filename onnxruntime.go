package main

import (
	"fmt"
	"runtime"

	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"
	"golang.org/x/sys/cpu"
)

func defaultOnnxLibPath() string {
	switch runtime.GOOS {
	case "darwin":
		return "libonnxruntime.dylib"
	case "windows":
		return "onnxruntime.dll"
	default:
		return "libonnxruntime.so"
	}
}

// initOnnxRuntime loads the shared library and creates the process-wide
// ONNX Runtime environment. The returned func tears it down.
func initOnnxRuntime(libPath string, logger *zap.Logger) (func(), error) {
	ort.SetSharedLibraryPath(libPath)
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("initialize onnx runtime from %s: %w", libPath, err)
	}

	version := ort.GetVersion()
	logger.Info("onnx runtime initialized",
		zap.String("library", libPath),
		zap.String("version", version),
	)

	return func() {
		if err := ort.DestroyEnvironment(); err != nil {
			logger.Warn("destroy onnx runtime environment", zap.Error(err))
		}
	}, nil
}

type cpuFeature struct {
	name    string
	present bool
}

// cpuFeatures lists the vector extensions ONNX Runtime's CPU kernels
// dispatch on.
func cpuFeatures() []cpuFeature {
	switch runtime.GOARCH {
	case "amd64", "386":
		return []cpuFeature{
			{"sse41", cpu.X86.HasSSE41},
			{"avx", cpu.X86.HasAVX},
			{"avx2", cpu.X86.HasAVX2},
			{"fma", cpu.X86.HasFMA},
			{"avx512f", cpu.X86.HasAVX512F},
		}
	case "arm64":
		return []cpuFeature{
			{"asimd", cpu.ARM64.HasASIMD},
			{"asimddp", cpu.ARM64.HasASIMDDP},
			{"sve", cpu.ARM64.HasSVE},
		}
	}
	return nil
}

func logCPUFeatures(logger *zap.Logger) {
	fields := []zap.Field{
		zap.String("arch", runtime.GOARCH),
		zap.Int("cpus", runtime.NumCPU()),
	}
	for _, f := range cpuFeatures() {
		fields = append(fields, zap.Bool(f.name, f.present))
	}
	logger.Info("cpu features", fields...)
}
