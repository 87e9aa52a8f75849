package detect

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeYOLO mimics the ultralytics CLI: it writes one label line per run.
const fakeYOLO = `#!/bin/sh
for a in "$@"; do
  case "$a" in
    project=*) project="${a#project=}";;
    name=*) name="${a#name=}";;
    source=*) source="${a#source=}";;
  esac
done
stem=$(basename "$source")
stem="${stem%.*}"
mkdir -p "$project/$name/labels"
printf '4 0.5 0.5 0.1 0.1 0.9\n' > "$project/$name/labels/$stem.txt"
`

const failingYOLO = `#!/bin/sh
echo "weights not found: $2" >&2
exit 2
`

func script(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "yolo")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o755))
	return p
}

func TestLayout_LabelPath(t *testing.T) {
	l := Layout{OutputRoot: "yolo_output"}
	assert.Equal(t, filepath.Join("yolo_output", "predict_1"), l.RunDir("predict_1"))
	assert.Equal(t,
		filepath.Join("yolo_output", "predict_1", "labels", "temp_1.txt"),
		l.LabelPath("predict_1", "/tmp/up/temp_1.jpg"))
}

func TestProcess_Detect(t *testing.T) {
	root := filepath.Join(t.TempDir(), "out")
	p := NewProcess(root, script(t, fakeYOLO), "best.pt", "cpu", 0)

	img := filepath.Join(t.TempDir(), "temp_abc.jpg")
	require.NoError(t, os.WriteFile(img, []byte{0xFF, 0xD8}, 0o644))

	got, err := p.Detect(context.Background(), img, "predict_abc")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "predict_abc", "labels", "temp_abc.txt"), got)

	b, err := os.ReadFile(got)
	require.NoError(t, err)
	assert.Equal(t, "4 0.5 0.5 0.1 0.1 0.9\n", string(b))
}

func TestProcess_Args(t *testing.T) {
	p := NewProcess("out", "yolo", "w.pt", "", 0)
	assert.Equal(t, []string{
		"predict", "model=w.pt", "source=img.jpg", "project=out", "name=run",
		"save=False", "save_txt=True", "save_conf=True", "exist_ok=True",
	}, p.args("img.jpg", "run"))

	p.Device = "cuda:0"
	args := p.args("img.jpg", "run")
	assert.Equal(t, "device=cuda:0", args[len(args)-1])
}

func TestProcess_Failure(t *testing.T) {
	p := NewProcess(t.TempDir(), script(t, failingYOLO), "missing.pt", "cpu", 0)

	_, err := p.Detect(context.Background(), "img.jpg", "run")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFailed))
	assert.Contains(t, err.Error(), "weights not found")
}

func TestProcess_MissingBinary(t *testing.T) {
	p := NewProcess(t.TempDir(), filepath.Join(t.TempDir(), "no-such-yolo"), "w.pt", "", 0)

	_, err := p.Detect(context.Background(), "img.jpg", "run")
	assert.ErrorIs(t, err, ErrFailed)
}
