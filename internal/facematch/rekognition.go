package facematch

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/rekognition"
)

// Rekognition compares faces with AWS Rekognition CompareFaces. The
// similarity threshold is pushed into the API call, so FaceMatches only
// contains matches at or above it.
type Rekognition struct {
	api       *rekognition.Rekognition
	threshold float64
}

// NewRekognition builds a Rekognition matcher. Static credentials are
// optional; when empty the SDK falls back to its default chain.
func NewRekognition(region, accessKey, secretKey string, threshold float64) (*Rekognition, error) {
	cfg := aws.NewConfig().WithRegion(region)
	if accessKey != "" && secretKey != "" {
		cfg = cfg.WithCredentials(credentials.NewStaticCredentials(accessKey, secretKey, ""))
	}
	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, fmt.Errorf("rekognition: session failed: %w", err)
	}
	return &Rekognition{api: rekognition.New(sess), threshold: threshold}, nil
}

// Compare runs CompareFaces with source as the enrolled reference and target
// as the submitted photo.
func (r *Rekognition) Compare(ctx context.Context, source, target []byte) (Comparison, error) {
	out, err := r.api.CompareFacesWithContext(ctx, &rekognition.CompareFacesInput{
		SourceImage:         &rekognition.Image{Bytes: source},
		TargetImage:         &rekognition.Image{Bytes: target},
		SimilarityThreshold: aws.Float64(r.threshold),
	})
	if err != nil {
		return Comparison{}, fmt.Errorf("rekognition: compare failed: %w", err)
	}
	if len(out.FaceMatches) == 0 {
		return Comparison{Match: false, Similarity: 0}, nil
	}
	return Comparison{
		Match:      true,
		Similarity: aws.Float64Value(out.FaceMatches[0].Similarity),
	}, nil
}

// Name identifies this matcher in attendance records.
func (r *Rekognition) Name() string { return "rekognition" }
