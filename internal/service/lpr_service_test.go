package service

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDetector struct {
	out *rekognition.DetectTextOutput
	err error
}

func (d fakeDetector) DetectText(ctx context.Context, params *rekognition.DetectTextInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectTextOutput, error) {
	return d.out, d.err
}

func detection(txt string, conf float32, tipo types.TextTypes) types.TextDetection {
	return types.TextDetection{DetectedText: aws.String(txt), Confidence: aws.Float32(conf), Type: tipo}
}

func TestIsPlate(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"BCDF12", true},
		{"AB1234", true},
		{"ABC123", false},
		{"1234AB", false},
		{"BCDF123", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isPlate(tt.in), tt.in)
	}
	assert.Equal(t, "BCDF12", normalizePlate("bc-df·12"))
}

func TestProcessImagePicksMostConfidentPlate(t *testing.T) {
	svc := NewLPRService(fakeDetector{out: &rekognition.DetectTextOutput{TextDetections: []types.TextDetection{
		detection("CHILE", 99, types.TextTypesLine),
		detection("AB 1234", 80, types.TextTypesLine),
		detection("BC-DF-12", 95, types.TextTypesLine),
	}}}, nil)

	plate, conf, err := svc.ProcessImage(context.Background(), []byte("img"))
	require.NoError(t, err)
	assert.Equal(t, "BCDF12", plate)
	assert.Equal(t, float32(95), conf)
}

func TestProcessImageErrors(t *testing.T) {
	_, _, err := NewLPRService(nil, nil).ProcessImage(context.Background(), nil)
	assert.Error(t, err)

	_, _, err = NewLPRService(fakeDetector{err: errors.New("throttled")}, nil).ProcessImage(context.Background(), nil)
	assert.ErrorContains(t, err, "throttled")

	svc := NewLPRService(fakeDetector{out: &rekognition.DetectTextOutput{TextDetections: []types.TextDetection{
		detection("CHILE", 99, types.TextTypesLine),
	}}}, nil)
	_, _, err = svc.ProcessImage(context.Background(), nil)
	assert.ErrorIs(t, err, ErrPlateNotRecognized)
}

func TestRecognizeForSpaceUpdatesPlate(t *testing.T) {
	h := newHarness(t, "", ocupado("A1", "", "15:00:00"))
	svc := NewLPRService(fakeDetector{out: &rekognition.DetectTextOutput{TextDetections: []types.TextDetection{
		detection("GHJK45", 90, types.TextTypesWord),
	}}}, h.svc)

	res, err := svc.RecognizeForSpace(context.Background(), "A1", []byte("img"))
	require.NoError(t, err)
	assert.Equal(t, "GHJK45", res.DetectedPlate)
	assert.Equal(t, "GHJK45", h.space(t, "A1").Patente.String)
}
