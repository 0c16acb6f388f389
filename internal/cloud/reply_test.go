//nolint:varnamelen // Test files use idiomatic short variable names (t, g, etc.)
package cloud_test

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers

	"github.com/joe/qfieldsync/internal/cloud"
)

func TestReply_CompletesOnce(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	release := make(chan struct{})
	reply := cloud.NewReply(context.Background(), func(context.Context) (int, error) {
		<-release
		return 42, nil
	})

	_, err := reply.Result()
	g.Expect(err).Should(MatchError(cloud.ErrReplyPending))

	close(release)
	g.Eventually(reply.Done()).Should(BeClosed())

	value, err := reply.Result()
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(value).Should(Equal(42))
}

func TestReply_AbortIsIdempotentAndCancels(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	reply := cloud.NewReply(context.Background(), func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})

	reply.Abort()
	reply.Abort()

	_, err := reply.Wait(context.Background())
	g.Expect(errors.Is(err, context.Canceled)).Should(BeTrue())

	reply.Abort()
}

func TestReply_WaitHonoursCallerContext(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	reply := cloud.NewReply(context.Background(), func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	defer reply.Abort()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := reply.Wait(ctx)
	g.Expect(err).Should(MatchError(context.DeadlineExceeded))
}

func TestResolvedReply(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	reply := cloud.ResolvedReply([]cloud.CloudFile{}, nil)
	g.Expect(reply.Done()).Should(BeClosed())

	files, err := reply.Result()
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(files).ShouldNot(BeNil())

	reply.Abort()
}
