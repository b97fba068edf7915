package fake_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scribahq/scriba/internal/generation"
	"github.com/scribahq/scriba/internal/generation/fake"
	"github.com/scribahq/scriba/internal/model"
)

func testPlan() model.Plan {
	return model.Plan{
		Title: "The Silent Harbor",
		Style: "noir",
		Chapters: []model.PlanChapter{
			{Title: "Arrival", Sections: 2},
			{Title: "The Fog", Sections: 1},
		},
	}
}

func TestGeneratorDeterminism(t *testing.T) {
	tests := map[string]struct {
		run func(ctx context.Context, t *testing.T, gen *fake.Generator)
	}{
		"Outline content should derive from the plan": {
			run: func(ctx context.Context, t *testing.T, gen *fake.Generator) {
				out, err := gen.GenerateOutline(ctx, generation.OutlineRequest{
					ProjectID: "p1",
					Plan:      testPlan(),
				})
				require.NoError(t, err)
				assert.Equal(t, `A noir book titled "The Silent Harbor" in 2 chapters.`, out.Synopsis)
				assert.Equal(t, 1, out.Units)
				assert.Equal(t, 1, gen.OutlineCount())
			},
		},

		"Outline style should fall back when the plan has none": {
			run: func(ctx context.Context, t *testing.T, gen *fake.Generator) {
				plan := testPlan()
				plan.Style = ""
				out, err := gen.GenerateOutline(ctx, generation.OutlineRequest{
					ProjectID: "p1",
					Plan:      plan,
				})
				require.NoError(t, err)
				assert.Contains(t, out.Synopsis, "A plain book")
			},
		},

		"Chapter summary should reference chapter and book": {
			run: func(ctx context.Context, t *testing.T, gen *fake.Generator) {
				sum, err := gen.GenerateChapterSummary(ctx, generation.ChapterSummaryRequest{
					ProjectID:    "p1",
					BookTitle:    "The Silent Harbor",
					ChapterTitle: "Arrival",
					Chapter:      1,
				})
				require.NoError(t, err)
				assert.Equal(t, `Chapter 1, "Arrival", advances the story of "The Silent Harbor".`, sum.Summary)
				assert.Equal(t, 1, sum.Units)
			},
		},

		"Section prose should carry the chapter context": {
			run: func(ctx context.Context, t *testing.T, gen *fake.Generator) {
				sec, err := gen.GenerateSection(ctx, generation.SectionRequest{
					ProjectID:      "p1",
					ChapterTitle:   "Arrival",
					ChapterSummary: "the crew lands",
					Chapter:        1,
					Section:        2,
				})
				require.NoError(t, err)
				assert.Equal(t, "[Arrival 1.2] the crew lands", sec.Text)

				recorded := gen.SectionRequests()
				require.Len(t, recorded, 1)
				assert.Equal(t, 2, recorded[0].Section)
			},
		},

		"Review notes should mention the title": {
			run: func(ctx context.Context, t *testing.T, gen *fake.Generator) {
				rev, err := gen.ReviewManuscript(ctx, generation.ReviewRequest{
					ProjectID: "p1",
					Title:     "The Silent Harbor",
					Chapters:  2,
				})
				require.NoError(t, err)
				require.Len(t, rev.Notes, 1)
				assert.Contains(t, rev.Notes[0], "The Silent Harbor")
				assert.Equal(t, 1, gen.ReviewCount())
			},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			gen, err := fake.NewGenerator(fake.GeneratorConfig{})
			require.NoError(t, err)

			test.run(context.Background(), t, gen)
		})
	}
}

func TestGeneratorFaultInjection(t *testing.T) {
	assert := assert.New(t)

	wantErr := errors.New("model overloaded")
	gen, err := fake.NewGenerator(fake.GeneratorConfig{
		FailSection: func(chapter, section int) error {
			if chapter == 2 && section == 1 {
				return wantErr
			}
			return nil
		},
	})
	require.NoError(t, err)

	ctx := context.Background()

	_, err = gen.GenerateSection(ctx, generation.SectionRequest{Chapter: 1, Section: 1})
	assert.NoError(err)

	_, err = gen.GenerateSection(ctx, generation.SectionRequest{Chapter: 2, Section: 1})
	assert.ErrorIs(err, wantErr)

	// Failed calls are still recorded.
	assert.Len(gen.SectionRequests(), 2)
}

func TestGeneratorCancellation(t *testing.T) {
	assert := assert.New(t)

	gen, err := fake.NewGenerator(fake.GeneratorConfig{Latency: 5 * time.Second})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err = gen.GenerateOutline(ctx, generation.OutlineRequest{Plan: testPlan()})
	assert.ErrorIs(err, context.Canceled)
	assert.Less(time.Since(start), time.Second)
}

func TestGeneratorCancelledContextWithoutLatency(t *testing.T) {
	assert := assert.New(t)

	gen, err := fake.NewGenerator(fake.GeneratorConfig{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = gen.GenerateOutline(ctx, generation.OutlineRequest{Plan: testPlan()})
	assert.ErrorIs(err, context.Canceled)
}
