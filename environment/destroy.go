package environment

import (
	"context"
	"crypto/rand"
	"fmt"
	"os"

	"github.com/nq-deploy/deployctl/common"
	"github.com/nq-deploy/deployctl/executor"
)

const overwritePasses = 3

// SecureDestroy overwrites the file at path with random bytes before
// unlinking it. When shred is available on the host it is used for the
// overwrite passes; otherwise the file content is replaced in-process.
// Destroying a file that does not exist is a no-op success.
func SecureDestroy(ctx context.Context, runner executor.Runner, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if runner != nil && runner.LookPath("shred") {
		if _, err := runner.Run(ctx, "shred", "-u", "-n", fmt.Sprint(overwritePasses), path); err == nil {
			return nil
		}
		common.Logger.Warn("shred failed, falling back to in-process overwrite")
	}

	size := info.Size()
	for pass := 0; pass < overwritePasses; pass++ {
		noise := make([]byte, size)
		if _, err := rand.Read(noise); err != nil {
			// A failed random read still leaves the single-pass zero
			// overwrite below as the floor.
			noise = make([]byte, size)
		}
		if err := os.WriteFile(path, noise, 0600); err != nil {
			return fmt.Errorf("overwriting %s: %w", path, err)
		}
	}
	return os.Remove(path)
}
