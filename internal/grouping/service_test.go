package grouping

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"parasight/internal/classifier"
	"parasight/internal/domain"
	"parasight/internal/storage"
)

type MockNamer struct {
	mock.Mock
}

func (m *MockNamer) NameGroup(ctx context.Context, a, b classifier.GroupCandidate) string {
	return m.Called(ctx, a, b).String(0)
}

func testLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func setup(t *testing.T) (*storage.BadgerRepository, *MockNamer, *Service) {
	t.Helper()
	repo, err := storage.NewBadgerRepository(t.TempDir(), testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, repo.Close()) })
	namer := new(MockNamer)
	return repo, namer, NewService(repo, namer, testLogger())
}

func saveLink(t *testing.T, repo storage.Repository, id, title, subcategory string, bucket domain.Bucket) {
	t.Helper()
	link := domain.Link{
		ID:          id,
		URL:         "https://example.com/" + id,
		Title:       title,
		Subcategory: subcategory,
		Tags:        []string{},
		CreatedAt:   time.Now(),
	}
	if bucket != "" {
		link.Para = &domain.Para{Bucket: bucket, Name: "name-" + id}
	}
	require.NoError(t, repo.SaveLink(context.Background(), link))
}

func TestGroup_DifferentGroupsSynthesizes(t *testing.T) {
	repo, namer, svc := setup(t)
	ctx := context.Background()
	saveLink(t, repo, "a", "Cobra", "💻 Development", domain.BucketResource)
	saveLink(t, repo, "b", "", "📖 Learning", domain.BucketArea)

	namer.On("NameGroup", mock.Anything,
		classifier.GroupCandidate{Title: "Cobra"},
		classifier.GroupCandidate{Title: "name-b"},
	).Return("🐍 Go CLIs").Once()

	name, err := svc.Group(ctx, "a", "b")
	require.NoError(t, err)
	assert.Equal(t, "🐍 Go CLIs", name)
	namer.AssertExpectations(t)

	for _, id := range []string{"a", "b"} {
		link, err := repo.GetLink(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "🐍 Go CLIs", link.Subcategory)
		assert.Equal(t, domain.BucketArea, link.Para.Bucket, "both move to the target link's bucket")
	}
	a, err := repo.GetLink(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "name-a", a.Para.Name, "para name survives a bucket move")
}

func TestGroup_ExistingLabelWithoutNaming(t *testing.T) {
	repo, namer, svc := setup(t)
	ctx := context.Background()
	saveLink(t, repo, "a", "Tool A", "🛠 Tools", domain.BucketResource)
	saveLink(t, repo, "b", "Tool B", "", "")

	name, err := svc.Group(ctx, "a", "b")
	require.NoError(t, err)
	assert.Equal(t, "🛠 Tools", name)
	namer.AssertNotCalled(t, "NameGroup", mock.Anything, mock.Anything, mock.Anything)

	b, err := repo.GetLink(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, "🛠 Tools", b.Subcategory)
	require.NotNil(t, b.Para)
	assert.Equal(t, domain.BucketResource, b.Para.Bucket)
	assert.Empty(t, b.Para.Name)
}

func TestGroup_TargetLabelWins(t *testing.T) {
	repo, namer, svc := setup(t)
	saveLink(t, repo, "a", "A", "", domain.BucketProject)
	saveLink(t, repo, "b", "B", "🚀 launch", domain.BucketProject)

	name, err := svc.Group(context.Background(), "a", "b")
	require.NoError(t, err)
	assert.Equal(t, "🚀 launch", name)
	namer.AssertNotCalled(t, "NameGroup", mock.Anything, mock.Anything, mock.Anything)
}

func TestGroup_NeitherGroupedNoBucket(t *testing.T) {
	repo, namer, svc := setup(t)
	ctx := context.Background()
	saveLink(t, repo, "a", "", "", "")
	saveLink(t, repo, "b", "B", "", "")
	namer.On("NameGroup", mock.Anything,
		classifier.GroupCandidate{Title: "Untitled"},
		classifier.GroupCandidate{Title: "B"},
	).Return(classifier.FallbackGroupName)

	name, err := svc.Group(ctx, "a", "b")
	require.NoError(t, err)
	assert.Equal(t, classifier.FallbackGroupName, name)

	a, err := repo.GetLink(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, a.Para, "bucket untouched when neither link has one")
	assert.Equal(t, classifier.FallbackGroupName, a.Subcategory)
}

func TestGroup_Errors(t *testing.T) {
	repo, _, svc := setup(t)
	saveLink(t, repo, "a", "A", "", "")

	_, err := svc.Group(context.Background(), "a", "a")
	assert.ErrorIs(t, err, ErrSameLink)

	_, err = svc.Group(context.Background(), "a", "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	a, err := repo.GetLink(context.Background(), "a")
	require.NoError(t, err)
	assert.Empty(t, a.Subcategory)
}
