package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dagger/semidx/internal/dagger"
)

// Build compiles the semidx binary for the container platform and returns
// the output directory.
func (s *Semidx) Build(
	ctx context.Context,

	// Linker flags for go build
	// +optional
	// +default="-s -w"
	ldflags string,
) *dagger.Directory {
	return s.goContainer().
		WithExec([]string{"go", "build", "-ldflags", ldflags, "-o", "/out/", "./cli/semidx"}).
		Directory("/out")
}

// BuildRelease compiles a versioned binary with embedded version info
func (s *Semidx) BuildRelease(
	ctx context.Context,

	// Version string of build
	version string,

	// Git commit SHA of build
	commit string,
) *dagger.Directory {
	buildtime := time.Now().UTC().Format(time.RFC3339)

	ldflags := []string{
		"-s",
		"-w",
		fmt.Sprintf("-X 'github.com/chataize/semantic-index/pkg/utils.Version=%s'", version),
		fmt.Sprintf("-X 'github.com/chataize/semantic-index/pkg/utils.Sha=%s'", commit),
		fmt.Sprintf("-X 'github.com/chataize/semantic-index/pkg/utils.Buildtime=%s'", buildtime),
	}

	return s.Build(ctx, strings.Join(ldflags, " "))
}
