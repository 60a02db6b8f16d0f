package gerber2solid

import (
	"context"
	"runtime"

	"github.com/golang/glog"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Alberthycentte/Gerber-to-Blender-pipeline-V2.0/diag"
)

// Job is the import of one file in a batch
type Job struct {
	ID      uuid.UUID
	Path    string
	Layer   Layer
	Skipped bool // drill files are not imported
	Result  *Result
	Err     error
}

/*
	ImportFiles imports every file on its own goroutine, at most workers at a time.
	Every layer gets the thickness of its kind, drill files are skipped with a
	warning. A failed job does not stop the others. When ctx is done the jobs
	not yet started get a Canceled error. The jobs are returned in the order of paths.
*/
func ImportFiles(ctx context.Context, paths []string, cfg Config, workers int) []Job {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	jobs := make([]Job, len(paths))
	var g errgroup.Group
	g.SetLimit(workers)
	for i, path := range paths {
		i, path := i, path
		jobs[i] = Job{ID: uuid.New(), Path: path, Layer: LayerOf(path)}
		if jobs[i].Layer.Kind == LayerDrill {
			jobs[i].Skipped = true
			glog.Warningln("job", jobs[i].ID, path, "skipped:", ErrDrillFile)
			continue
		}
		if err := ctx.Err(); err != nil {
			jobs[i].Err = canceled(err)
			continue
		}
		g.Go(func() error {
			job := &jobs[i]
			if err := ctx.Err(); err != nil {
				job.Err = canceled(err)
				return nil
			}
			if glog.V(1) {
				glog.Infoln("job", job.ID, "started:", job.Path)
			}
			job.Result, job.Err = ImportFile(job.Path, cfg.ForLayer(job.Layer.Kind))
			if job.Err != nil {
				glog.Warningln("job", job.ID, job.Path, "failed:", job.Err)
			} else if glog.V(1) {
				glog.Infoln("job", job.ID, "done:", job.Path)
			}
			return nil
		})
	}
	g.Wait()
	return jobs
}

func canceled(err error) error {
	return diag.NewError(diag.KindCanceled, 0, "%v", err)
}
