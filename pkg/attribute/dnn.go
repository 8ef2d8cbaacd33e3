package attribute

import (
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"

	"github.com/edgesight/go-signage/pkg/persona"
	"github.com/edgesight/go-signage/pkg/track"
)

// Age bucket midpoints for the classic OpenCV age classifier, whose eight
// output classes are (0-2), (4-6), (8-12), (15-20), (25-32), (38-43),
// (48-53) and (60-100).
var ageBucketYears = [8]int{1, 5, 10, 17, 28, 40, 50, 80}

// attrInputSize is the input resolution of the age/gender nets.
const attrInputSize = 227

// Config holds DNN estimator configuration.
type Config struct {
	FaceModelPath   string  // YuNet face detection ONNX model
	AgeModelPath    string  // Age classifier caffemodel
	AgeProtoPath    string  // Age classifier prototxt
	GenderModelPath string  // Gender classifier caffemodel
	GenderProtoPath string  // Gender classifier prototxt
	FaceScoreThresh float64 // Minimum face detection score
	InputWidth      int     // Face detector input width
	InputHeight     int     // Face detector input height
}

// DefaultConfig returns production defaults for the DNN estimator.
func DefaultConfig() Config {
	return Config{
		FaceModelPath:   "models/face_detection_yunet.onnx",
		AgeModelPath:    "models/age_net.caffemodel",
		AgeProtoPath:    "models/age_deploy.prototxt",
		GenderModelPath: "models/gender_net.caffemodel",
		GenderProtoPath: "models/gender_deploy.prototxt",
		FaceScoreThresh: 0.6,
		InputWidth:      320,
		InputHeight:     320,
	}
}

// DNNEstimator detects faces with YuNet and classifies age and gender with
// the classic OpenCV attribute nets. Each person box gets the attributes of
// its best-overlapping face, or an explicit unknown estimate.
type DNNEstimator struct {
	faces     gocv.FaceDetectorYN
	ageNet    gocv.Net
	genderNet gocv.Net
	config    Config
	mu        sync.Mutex // Protects inference
}

// NewDNN creates the DNN attribute estimator.
func NewDNN(cfg Config) (*DNNEstimator, error) {
	faces := gocv.NewFaceDetectorYNWithParams(
		cfg.FaceModelPath,
		"",
		image.Pt(cfg.InputWidth, cfg.InputHeight),
		float32(cfg.FaceScoreThresh),
		0.3,  // NMS threshold
		5000, // Top K
		int(gocv.NetBackendDefault),
		int(gocv.NetTargetCPU),
	)

	ageNet := gocv.ReadNet(cfg.AgeModelPath, cfg.AgeProtoPath)
	if ageNet.Empty() {
		faces.Close()
		return nil, fmt.Errorf("read age model %s", cfg.AgeModelPath)
	}
	genderNet := gocv.ReadNet(cfg.GenderModelPath, cfg.GenderProtoPath)
	if genderNet.Empty() {
		faces.Close()
		ageNet.Close()
		return nil, fmt.Errorf("read gender model %s", cfg.GenderModelPath)
	}

	return &DNNEstimator{faces: faces, ageNet: ageNet, genderNet: genderNet, config: cfg}, nil
}

// detectedFace is one face found in the frame.
type detectedFace struct {
	box   track.Box
	score float64
}

// Estimate returns one estimate per person box, position-aligned.
func (e *DNNEstimator) Estimate(jpeg []byte, personBoxes []track.Box) ([]persona.Estimate, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]persona.Estimate, len(personBoxes))
	for i := range out {
		out[i] = persona.Unknown()
	}
	if len(personBoxes) == 0 {
		return out, nil
	}

	img, err := gocv.IMDecode(jpeg, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	defer img.Close()

	if img.Empty() {
		return nil, fmt.Errorf("empty image")
	}

	faces := e.detectFaces(img)
	if len(faces) == 0 {
		return out, nil
	}

	faceBoxes := make([]track.Box, len(faces))
	for i, f := range faces {
		faceBoxes[i] = f.box
	}

	for pi, fi := range assignFaces(personBoxes, faceBoxes) {
		if fi < 0 {
			continue
		}
		out[pi] = e.classify(img, faces[fi])
	}
	return out, nil
}

// detectFaces runs YuNet over the whole frame.
func (e *DNNEstimator) detectFaces(img gocv.Mat) []detectedFace {
	e.faces.SetInputSize(image.Pt(img.Cols(), img.Rows()))

	result := gocv.NewMat()
	defer result.Close()
	e.faces.Detect(img, &result)

	// YuNet rows: cols 0-3 are x, y, w, h in pixels; col 14 is the score.
	var out []detectedFace
	for r := 0; r < result.Rows(); r++ {
		out = append(out, detectedFace{
			box: track.Box{
				X: float64(result.GetFloatAt(r, 0)),
				Y: float64(result.GetFloatAt(r, 1)),
				W: float64(result.GetFloatAt(r, 2)),
				H: float64(result.GetFloatAt(r, 3)),
			},
			score: float64(result.GetFloatAt(r, 14)),
		})
	}
	return out
}

// classify crops the face and runs the attribute nets over it.
func (e *DNNEstimator) classify(img gocv.Mat, face detectedFace) persona.Estimate {
	rect := clampRect(face.box, img.Cols(), img.Rows())
	if rect.Empty() {
		return persona.Unknown()
	}

	crop := img.Region(rect)
	defer crop.Close()

	blob := gocv.BlobFromImage(crop, 1.0,
		image.Pt(attrInputSize, attrInputSize),
		gocv.NewScalar(78.426, 87.769, 114.896, 0), false, false)
	defer blob.Close()

	est := persona.Estimate{
		HasFace: true,
		// The YuNet/attr-net stack exposes no expression head; report a
		// neutral label at the face score so downstream confidence
		// flooring still applies.
		Emotion:     persona.EmotionNeutral,
		EmotionConf: face.score,
	}

	ageIdx, ageConf := e.forward(&e.ageNet, blob)
	if ageIdx >= 0 && ageIdx < len(ageBucketYears) {
		est.AgeYears = ageBucketYears[ageIdx]
		est.AgeConf = ageConf
	} else {
		est.AgeYears = -1
	}

	genderIdx, genderConf := e.forward(&e.genderNet, blob)
	switch genderIdx {
	case 0:
		est.Gender, est.GenderConf = persona.GenderMale, genderConf
	case 1:
		est.Gender, est.GenderConf = persona.GenderFemale, genderConf
	default:
		est.Gender = persona.GenderUnknown
	}

	return est
}

// forward runs one classifier and returns (argmax, confidence).
func (e *DNNEstimator) forward(net *gocv.Net, blob gocv.Mat) (int, float64) {
	net.SetInput(blob, "")
	prob := net.Forward("")
	defer prob.Close()

	flat := prob.Reshape(1, 1)
	defer flat.Close()

	best, bestVal := -1, float32(0)
	for c := 0; c < flat.Cols(); c++ {
		if v := flat.GetFloatAt(0, c); v > bestVal {
			best, bestVal = c, v
		}
	}
	return best, float64(bestVal)
}

// clampRect converts a pixel box to an image.Rectangle clipped to bounds.
func clampRect(b track.Box, w, h int) image.Rectangle {
	r := image.Rect(int(b.X), int(b.Y), int(b.X+b.W), int(b.Y+b.H))
	return r.Intersect(image.Rect(0, 0, w, h))
}

// Close releases all models.
func (e *DNNEstimator) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.faces.Close()
	if err := e.ageNet.Close(); err != nil {
		return err
	}
	return e.genderNet.Close()
}
