package inference

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResponseText(t *testing.T) {
	tests := []struct {
		name   string
		resp   *Response
		want   string
		wantOK bool
	}{
		{name: "nil response", resp: nil},
		{name: "no candidates", resp: &Response{}},
		{name: "candidate without parts", resp: &Response{Candidates: []Candidate{{}}}},
		{name: "whitespace only", resp: &Response{Candidates: []Candidate{{Parts: []string{"  \n"}}}}},
		{
			name:   "single part",
			resp:   &Response{Candidates: []Candidate{{Parts: []string{"Eczema"}}}},
			want:   "Eczema",
			wantOK: true,
		},
		{
			name:   "split parts are joined",
			resp:   &Response{Candidates: []Candidate{{Parts: []string{"Condition: ", "Eczema\n"}}}},
			want:   "Condition: Eczema",
			wantOK: true,
		},
		{
			name: "only the first candidate counts",
			resp: &Response{Candidates: []Candidate{
				{Parts: []string{""}},
				{Parts: []string{"second"}},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.resp.Text()
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestQuestionPrompt(t *testing.T) {
	assert.Equal(t,
		`Answer this skin health question: "What causes acne?". Provide helpful information but remind users to consult healthcare professionals.`,
		QuestionPrompt("What causes acne?"))
}

func TestRequestPromptAndImages(t *testing.T) {
	req := Request{Parts: []Part{
		TextPart("first"),
		ImagePart("image/png", []byte{1, 2}),
		TextPart("second"),
	}}

	assert.Equal(t, "first\n\nsecond", req.Prompt())
	images := req.Images()
	if assert.Len(t, images, 1) {
		assert.Equal(t, "image/png", images[0].MIMEType)
	}
}
