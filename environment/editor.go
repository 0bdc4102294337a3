package environment

import (
	"context"
	"fmt"
	"os"

	"github.com/nq-deploy/deployctl/common"
	"github.com/nq-deploy/deployctl/executor"
)

// editorCandidates is the fallback order when $EDITOR is unset.
var editorCandidates = []string{"nano", "vi"}

// OpenInEditor hands the persisted environment file to the operator for
// manual edits (object storage credentials, admin email). $EDITOR wins when
// set; otherwise the first available candidate is used. Any failure here
// degrades to a warning, the deployment continues with generated values.
func OpenInEditor(ctx context.Context, runner executor.Runner, path string) {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		for _, candidate := range editorCandidates {
			if runner.LookPath(candidate) {
				editor = candidate
				break
			}
		}
	}
	if editor == "" {
		common.Logger.Warn("no editor found, skipping manual edit of ", path)
		return
	}

	fmt.Printf("Opening %s in %s. Adjust object storage credentials and admin email, then save.\n", path, editor)
	cmd := executor.Interactive(ctx, editor, path)
	if err := cmd.Run(); err != nil {
		common.Logger.Warn("editor exited with error, continuing with current values: ", err)
	}
}
