//go:build ignore

// build.go - Bikedash Build System
// Usage: go run build.go [-target=TARGET] [-v]
// Targets: all, web, cli, test, clean, release

package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

const module = "bikedash"

var (
	rootDir string
	distDir string

	// key = source dir under cmd/, value = output name without extension
	executables = map[string]string{
		"web":      "bikedash-web",
		"bikedash": "bikedash",
	}

	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

// BuildContext holds configuration for the build process
type BuildContext struct {
	Verbose bool
	GOOS    string
	GOARCH  string
}

func init() {
	cwd, err := os.Getwd()
	if err != nil {
		panic(fmt.Sprintf("Failed to get current directory: %v", err))
	}
	rootDir = cwd
	distDir = filepath.Join(rootDir, "dist")

	if _, err := os.Stat(filepath.Join(rootDir, "go.mod")); os.IsNotExist(err) {
		panic(fmt.Sprintf("go.mod not found in %s; run the build from the repository root", rootDir))
	}
}

func main() {
	target := flag.String("target", "all", "Build target")
	verbose := flag.Bool("v", false, "Verbose output")
	goos := flag.String("os", runtime.GOOS, "Target operating system")
	goarch := flag.String("arch", runtime.GOARCH, "Target architecture")
	flag.Parse()

	printHeader()
	startTime := time.Now()

	ctx := &BuildContext{Verbose: *verbose, GOOS: *goos, GOARCH: *goarch}

	switch *target {
	case "all":
		buildAll(ctx)
	case "web":
		buildExecutable("web", ctx)
	case "cli":
		buildExecutable("bikedash", ctx)
	case "test":
		runTests(ctx.Verbose)
	case "clean":
		clean()
	case "release":
		buildRelease(ctx)
	default:
		showHelp()
		os.Exit(1)
	}

	printSuccess(fmt.Sprintf("Build completed in %s", time.Since(startTime).Round(time.Millisecond)))
}

func printHeader() {
	fmt.Println(colorCyan + "====================================" + colorReset)
	fmt.Println(colorCyan + "       Bikedash - Build System      " + colorReset)
	fmt.Println(colorCyan + "====================================" + colorReset)
}

func printInfo(msg string) {
	fmt.Println(colorCyan + "[INFO] " + colorReset + msg)
}

func printSuccess(msg string) {
	fmt.Println(colorGreen + "[OK] " + colorReset + msg)
}

func printError(msg string) {
	fmt.Fprintln(os.Stderr, colorRed+"[ERROR] "+colorReset+msg)
}

func printWarning(msg string) {
	fmt.Println(colorYellow + "[WARN] " + colorReset + msg)
}

func buildAll(ctx *BuildContext) {
	if err := os.MkdirAll(distDir, 0755); err != nil {
		printError(fmt.Sprintf("Failed to create dist directory: %v", err))
		os.Exit(1)
	}
	buildExecutable("web", ctx)
	buildExecutable("bikedash", ctx)
}

// ldflags stamps build metadata into pkg/contracts.
func ldflags() string {
	commit := "unknown"
	if out, err := exec.Command("git", "rev-parse", "--short", "HEAD").Output(); err == nil {
		commit = strings.TrimSpace(string(out))
	} else {
		printWarning("git not available, commit left as unknown")
	}
	pkg := module + "/pkg/contracts"
	return fmt.Sprintf("-s -w -X %s.BuildTime=%s -X %s.GitCommit=%s",
		pkg, time.Now().UTC().Format(time.RFC3339), pkg, commit)
}

func buildExecutable(name string, ctx *BuildContext) {
	exeName, ok := executables[name]
	if !ok {
		printError(fmt.Sprintf("Unknown executable: %s", name))
		os.Exit(1)
	}
	if ctx.GOOS == "windows" {
		exeName += ".exe"
	}

	printInfo(fmt.Sprintf("Building %s for %s/%s...", name, ctx.GOOS, ctx.GOARCH))

	outputPath := filepath.Join(distDir, exeName)
	args := []string{"build"}
	if ctx.Verbose {
		args = append(args, "-v")
	}
	args = append(args, "-trimpath", "-ldflags", ldflags(), "-o", outputPath, "./cmd/"+name)

	cmd := exec.Command("go", args...)
	cmd.Dir = rootDir
	cmd.Env = append(os.Environ(), "GOOS="+ctx.GOOS, "GOARCH="+ctx.GOARCH, "CGO_ENABLED=0")
	cmd.Stderr = os.Stderr
	if ctx.Verbose {
		fmt.Printf("Running: go %s\n", strings.Join(args, " "))
		cmd.Stdout = os.Stdout
	}

	if err := cmd.Run(); err != nil {
		printError(fmt.Sprintf("Failed to build %s: %v", name, err))
		os.Exit(1)
	}

	if info, err := os.Stat(outputPath); err == nil {
		printSuccess(fmt.Sprintf("Built %s (%.1f MB)", exeName, float64(info.Size())/1024/1024))
	}
}

func runTests(verbose bool) {
	printInfo("Running Go tests...")
	args := []string{"test", "-race"}
	if verbose {
		args = append(args, "-v")
	}
	args = append(args, "./...")

	cmd := exec.Command("go", args...)
	cmd.Dir = rootDir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		printError(fmt.Sprintf("Go tests failed: %v", err))
		os.Exit(1)
	}
	printSuccess("All tests passed")
}

func clean() {
	printInfo("Cleaning build artifacts...")
	if err := os.RemoveAll(distDir); err != nil {
		printError(fmt.Sprintf("Failed to clean dist directory: %v", err))
		os.Exit(1)
	}
	printSuccess("Build artifacts cleaned")
}

// buildRelease runs the tests, then builds every executable with a
// version file next to them.
func buildRelease(ctx *BuildContext) {
	runTests(ctx.Verbose)
	clean()
	buildAll(ctx)

	content := fmt.Sprintf("Bikedash\nDashboard Peminjaman Sepeda\nBuilt: %s\nTarget: %s/%s\n",
		time.Now().Format("2006-01-02 15:04:05"), ctx.GOOS, ctx.GOARCH)
	if err := os.WriteFile(filepath.Join(distDir, "VERSION.txt"), []byte(content), 0644); err != nil {
		printError(fmt.Sprintf("Failed to write version file: %v", err))
		os.Exit(1)
	}
	printSuccess("Release build complete")
}

func showHelp() {
	fmt.Println("Usage: go run build.go -target=TARGET [-v] [-os=GOOS] [-arch=GOARCH]")
	fmt.Println("Targets:")
	fmt.Println("  all       Build the web server and the CLI")
	fmt.Println("  web       Build the dashboard web server")
	fmt.Println("  cli       Build the bikedash command line tool")
	fmt.Println("  test      Run the Go tests with the race detector")
	fmt.Println("  clean     Remove dist/")
	fmt.Println("  release   Test, clean and build everything")
}
