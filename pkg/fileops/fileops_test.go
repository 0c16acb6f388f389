//nolint:varnamelen // Test files use idiomatic short variable names (t, g, etc.)
package fileops_test

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"
	"time"

	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers

	"github.com/joe/qfieldsync/pkg/fileops"
	"github.com/joe/qfieldsync/pkg/filesystem"
)

func TestComputeFileHash(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	fs := filesystem.NewMockFileSystem()
	fs.AddFile("p/project.qgs", []byte("<qgis/>"), time.Now())

	sum := sha256.Sum256([]byte("<qgis/>"))

	hash, err := fileops.NewFileOps(fs).ComputeFileHash("p/project.qgs")
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(hash).Should(Equal(hex.EncodeToString(sum[:])))
}

func TestComputeFileHash_MissingFile(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	_, err := fileops.NewFileOps(filesystem.NewMockFileSystem()).ComputeFileHash("nope")
	g.Expect(err).Should(MatchError(ContainSubstring("failed to open file nope")))
}

func TestScanDirectory_SkipsDirectoriesAndPartials(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	fs := filesystem.NewMockFileSystem()
	now := time.Now()
	fs.AddFile("p/project.qgs", []byte("abc"), now)
	fs.AddFile("p/data/roads.gpkg", []byte("12345"), now)
	fs.AddFile("p/data/old.gpkg.part", []byte("x"), now)

	var seen []string

	files, err := fileops.NewFileOps(fs).ScanDirectoryWithProgress("p", func(path string, _ int, _ int64) {
		seen = append(seen, path)
	})
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(files).Should(HaveLen(2))
	g.Expect(files).Should(HaveKey("data/roads.gpkg"))
	g.Expect(files["data/roads.gpkg"].Size).Should(Equal(int64(5)))
	g.Expect(files["project.qgs"].Path).Should(Equal("p/project.qgs"))
	g.Expect(seen).Should(ConsistOf("p/project.qgs", "p/data/roads.gpkg"))
}

func TestPartialLifecycle(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	fs := filesystem.NewMockFileSystem()
	ops := fileops.NewFileOps(fs)

	file, err := ops.CreatePartial("p/sub/layer.gpkg")
	g.Expect(err).ShouldNot(HaveOccurred())
	_, _ = file.Write([]byte("new"))
	g.Expect(file.Close()).Should(Succeed())

	g.Expect(fs.Exists("p/sub/layer.gpkg.part")).Should(BeTrue())
	g.Expect(fs.Exists("p/sub/layer.gpkg")).Should(BeFalse())

	g.Expect(ops.Commit("p/sub/layer.gpkg")).Should(Succeed())

	data, _, err := fs.GetFile("p/sub/layer.gpkg")
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(string(data)).Should(Equal("new"))
	g.Expect(fs.Exists("p/sub/layer.gpkg.part")).Should(BeFalse())
}

func TestDiscard_RemovesPartialOnly(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	fs := filesystem.NewMockFileSystem()
	fs.AddFile("p/a.gpkg", []byte("old"), time.Now())
	fs.AddFile("p/a.gpkg.part", []byte("ne"), time.Now())

	ops := fileops.NewFileOps(fs)
	ops.Discard("p/a.gpkg")
	ops.Discard("p/missing.gpkg")

	g.Expect(fs.Exists("p/a.gpkg.part")).Should(BeFalse())
	g.Expect(fs.Exists("p/a.gpkg")).Should(BeTrue())
}

func TestCopyStream_ReportsProgress(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	payload := strings.Repeat("x", fileops.BufferSize+10)

	var (
		dst   bytes.Buffer
		calls []int64
	)

	n, err := fileops.CopyStream(context.Background(), &dst, strings.NewReader(payload), int64(len(payload)), "f",
		func(done, total int64, name string) {
			g.Expect(total).Should(Equal(int64(len(payload))))
			g.Expect(name).Should(Equal("f"))
			calls = append(calls, done)
		})

	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(n).Should(Equal(int64(len(payload))))
	g.Expect(dst.String()).Should(Equal(payload))
	g.Expect(calls).Should(HaveLen(2))
	g.Expect(calls[1]).Should(Equal(int64(len(payload))))
}

func TestCopyStream_StopsWhenCancelled(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var dst bytes.Buffer

	n, err := fileops.CopyStream(ctx, &dst, strings.NewReader("data"), 4, "f", nil)
	g.Expect(err).Should(MatchError(fileops.ErrCopyCancelled))
	g.Expect(n).Should(BeZero())
	g.Expect(dst.Len()).Should(BeZero())
}
