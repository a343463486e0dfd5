package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/san-kum/swaysim/internal/sway"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID        string             `json:"id"`
	Scene     string             `json:"scene"`
	Timestamp time.Time          `json:"timestamp"`
	FrameRate float64            `json:"frame_rate"`
	Substeps  int                `json:"substeps"`
	Duration  float64            `json:"duration"`
	Backend   string             `json:"backend"`
	Bones     int                `json:"bones"`
	Parents   []uint32           `json:"parents,omitempty"`
	Metrics   map[string]float64 `json:"metrics"`
}

// Recording accumulates pose frames during a run; register Observe as a
// sim observer and hand the recording to Save afterwards.
type Recording struct {
	Frames [][]sway.Vec3
	Times  []float64
}

func (r *Recording) Observe(positions []sway.Vec3, t float64) {
	frame := make([]sway.Vec3, len(positions))
	copy(frame, positions)
	r.Frames = append(r.Frames, frame)
	r.Times = append(r.Times, t)
}

func (s *Store) Save(scene string, frameRate float64, substeps int, duration float64, backend string, parents []uint32, rec *Recording, metrics map[string]float64) (string, error) {
	runID := fmt.Sprintf("%s_%d", scene, time.Now().Unix())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	bones := 0
	if len(rec.Frames) > 0 {
		bones = len(rec.Frames[0])
	}

	meta := RunMetadata{
		ID:        runID,
		Scene:     scene,
		Timestamp: time.Now(),
		FrameRate: frameRate,
		Substeps:  substeps,
		Duration:  duration,
		Backend:   backend,
		Bones:     bones,
		Parents:   parents,
		Metrics:   metrics,
	}

	metaPath := filepath.Join(runDir, "metadata.json")
	metaFile, err := os.Create(metaPath)
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvPath := filepath.Join(runDir, "frames.csv")
	csvFile, err := os.Create(csvPath)
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	defer w.Flush()

	if len(rec.Frames) == 0 {
		return runID, nil
	}

	header := []string{"time"}
	for i := 0; i < bones; i++ {
		header = append(header,
			fmt.Sprintf("b%d_x", i), fmt.Sprintf("b%d_y", i), fmt.Sprintf("b%d_z", i))
	}
	if err := w.Write(header); err != nil {
		return "", err
	}

	for i, frame := range rec.Frames {
		row := []string{strconv.FormatFloat(rec.Times[i], 'f', 6, 64)}
		for _, p := range frame {
			row = append(row,
				strconv.FormatFloat(float64(p.X()), 'f', 6, 32),
				strconv.FormatFloat(float64(p.Y()), 'f', 6, 32),
				strconv.FormatFloat(float64(p.Z()), 'f', 6, 32))
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}

	return runID, nil
}

func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		metaPath := filepath.Join(s.baseDir, entry.Name(), "metadata.json")
		data, err := os.ReadFile(metaPath)
		if err != nil {
			continue
		}

		var meta RunMetadata
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}

		runs = append(runs, meta)
	}

	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	metaPath := filepath.Join(s.baseDir, runID, "metadata.json")
	data, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

func (s *Store) LoadFrames(runID string) ([][]sway.Vec3, []float64, error) {
	csvPath := filepath.Join(s.baseDir, runID, "frames.csv")
	file, err := os.Open(csvPath)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}

	if len(records) < 2 {
		return [][]sway.Vec3{}, []float64{}, nil
	}

	times := make([]float64, 0, len(records)-1)
	frames := make([][]sway.Vec3, 0, len(records)-1)

	for i := 1; i < len(records); i++ {
		record := records[i]
		if len(record) < 4 {
			continue
		}

		t, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			continue
		}
		times = append(times, t)

		frame := make([]sway.Vec3, 0, (len(record)-1)/3)
		for j := 1; j+2 < len(record); j += 3 {
			x, err1 := strconv.ParseFloat(record[j], 32)
			y, err2 := strconv.ParseFloat(record[j+1], 32)
			z, err3 := strconv.ParseFloat(record[j+2], 32)
			if err1 != nil || err2 != nil || err3 != nil {
				continue
			}
			frame = append(frame, sway.Vec3{float32(x), float32(y), float32(z)})
		}
		frames = append(frames, frame)
	}

	return frames, times, nil
}
