package service

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"

	"kiosko_estacionamiento/internal/domain"
)

// TextDetector es la parte de Rekognition que usa el reconocimiento de patentes.
type TextDetector interface {
	DetectText(ctx context.Context, params *rekognition.DetectTextInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectTextOutput, error)
}

// Patentes chilenas: formato nuevo BBBB99 y antiguo BB9999.
var plateRegexes = []*regexp.Regexp{
	regexp.MustCompile(`^[A-Z]{4}\d{2}$`),
	regexp.MustCompile(`^[A-Z]{2}\d{4}$`),
}

func isPlate(txt string) bool {
	for _, re := range plateRegexes {
		if re.MatchString(txt) {
			return true
		}
	}
	return false
}

// normalizePlate quita separadores habituales ("AB-CD-12", "AB·CD 12").
func normalizePlate(txt string) string {
	r := strings.NewReplacer(" ", "", "-", "", ".", "", "·", "", "•", "")
	return strings.ToUpper(r.Replace(txt))
}

type LPRService struct {
	detector TextDetector
	spaces   *SpaceService
}

func NewLPRService(detector TextDetector, spaces *SpaceService) *LPRService {
	return &LPRService{detector: detector, spaces: spaces}
}

func (s *LPRService) Enabled() bool {
	return s.detector != nil
}

// ProcessImage busca en la imagen el texto con más confianza que tenga forma
// de patente.
func (s *LPRService) ProcessImage(ctx context.Context, imageBytes []byte) (string, float32, error) {
	if s.detector == nil {
		return "", 0, fmt.Errorf("reconocimiento de patentes no configurado")
	}

	result, err := s.detector.DetectText(ctx, &rekognition.DetectTextInput{
		Image: &types.Image{Bytes: imageBytes},
	})
	if err != nil {
		log.Printf("LPRService: error de Rekognition DetectText: %v", err)
		return "", 0, fmt.Errorf("error de Rekognition: %w", err)
	}

	var detected []string
	var best string
	var maxConfidence float32
	for _, d := range result.TextDetections {
		if d.Type != types.TextTypesLine && d.Type != types.TextTypesWord {
			continue
		}
		if d.DetectedText == nil || d.Confidence == nil {
			continue
		}
		txt := normalizePlate(*d.DetectedText)
		detected = append(detected, fmt.Sprintf("%s (%.2f)", txt, *d.Confidence))
		if isPlate(txt) && *d.Confidence > maxConfidence {
			maxConfidence = *d.Confidence
			best = txt
		}
	}

	if best == "" {
		log.Printf("LPRService: sin patente entre los textos detectados: %s", strings.Join(detected, ", "))
		return "", 0, fmt.Errorf("%w (texto: %s)", ErrPlateNotRecognized, strings.Join(detected, ", "))
	}
	log.Printf("LPRService: patente %s con confianza %.2f", best, maxConfidence)
	return best, maxConfidence, nil
}

// RecognizeForSpace reconoce la patente y la asigna al espacio indicado.
func (s *LPRService) RecognizeForSpace(ctx context.Context, id string, imageBytes []byte) (*domain.LPRResponseDTO, error) {
	plate, confidence, err := s.ProcessImage(ctx, imageBytes)
	if err != nil {
		return nil, err
	}
	if _, err := s.spaces.UpdatePlate(ctx, id, plate); err != nil {
		return nil, err
	}
	return &domain.LPRResponseDTO{DetectedPlate: plate, Confidence: confidence}, nil
}
