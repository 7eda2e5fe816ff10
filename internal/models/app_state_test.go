package models_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-tutor-web/internal/dto"
	"github.com/noah-isme/gema-tutor-web/internal/models"
)

func TestSetUploadedFileClearsSummaryAndTopic(t *testing.T) {
	var state models.AppState
	state.SetUploadedFile(dto.UploadedFileRef{FileID: "f1", OriginalFilename: "doc.pdf"})
	state.SetSummary(dto.Summary{KeyPoints: []dto.KeyPoint{{Text: "Photosynthesis"}}})
	require.Equal(t, "Photosynthesis", state.Topic)

	state.SetUploadedFile(dto.UploadedFileRef{FileID: "f2", OriginalFilename: "next.pdf"})
	require.Nil(t, state.Summary)
	require.Empty(t, state.Topic)
	require.Equal(t, "f2", state.FileID())
}

func TestSetSummaryDerivesTopic(t *testing.T) {
	cases := []struct {
		name    string
		file    *dto.UploadedFileRef
		summary dto.Summary
		want    string
	}{
		{
			name:    "term of first pair",
			file:    &dto.UploadedFileRef{FileID: "f1", OriginalFilename: "doc.pdf"},
			summary: dto.Summary{KeyPoints: []dto.KeyPoint{{Term: "Mitosis", Explanation: "cell division"}}},
			want:    "Mitosis",
		},
		{
			name:    "file name when no key points",
			file:    &dto.UploadedFileRef{FileID: "f1", OriginalFilename: "doc.pdf"},
			summary: dto.Summary{Paragraphs: []string{"p"}},
			want:    "doc.pdf",
		},
		{
			name:    "fallback",
			summary: dto.Summary{},
			want:    models.FallbackTopic,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var state models.AppState
			if tc.file != nil {
				state.SetUploadedFile(*tc.file)
			}
			state.SetSummary(tc.summary)
			require.Equal(t, tc.want, state.Topic)
		})
	}
}
