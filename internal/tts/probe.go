package tts

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/geraldfingburke/dailydigest/internal/taxonomy"
)

// Prober validates a rendered MP3 file before it is committed (§4.6 step
// 2): non-zero size, valid audio framing, and a plausible duration.
type Prober struct {
	BinaryPath string // "ffprobe" if empty
}

func NewProber() *Prober {
	return &Prober{BinaryPath: "ffprobe"}
}

// minPlausibleDuration is the floor below which a rendered file is treated
// as a failed synthesis rather than a legitimately short clip — except for
// no-content scripts, which the caller exempts explicitly.
const minPlausibleDuration = 10 * time.Second

// Probe returns the file's duration, or an error if the file fails any
// validation check.
func (p *Prober) Probe(ctx context.Context, path string, allowShort bool) (time.Duration, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("stat rendered mp3 %s: %w", path, err)
	}
	if info.Size() == 0 {
		return 0, taxonomy.NewInputInvalid("rendered mp3 is empty: "+path, nil)
	}

	if err := p.checkFraming(path); err != nil {
		return 0, err
	}

	dur, err := p.duration(ctx, path)
	if err != nil {
		return 0, err
	}
	if dur < minPlausibleDuration && !allowShort {
		return 0, taxonomy.NewInputInvalid(fmt.Sprintf("rendered mp3 duration %s is implausibly short", dur), nil)
	}
	return dur, nil
}

// checkFraming reads the first few bytes of the file and rejects anything
// that is neither an ID3 tag nor an MPEG audio frame sync.
func (p *Prober) checkFraming(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s for framing check: %w", path, err)
	}
	defer f.Close()

	head := make([]byte, 3)
	if _, err := io.ReadFull(f, head); err != nil {
		return taxonomy.NewInputInvalid("mp3 file too short to contain a header: "+path, err)
	}
	isID3 := string(head) == "ID3"
	isFrameSync := head[0] == 0xFF && (head[1]&0xE0) == 0xE0
	if !isID3 && !isFrameSync {
		return taxonomy.NewInputInvalid("rendered file is not a recognizable mp3: "+path, nil)
	}
	return nil
}

func (p *Prober) duration(ctx context.Context, path string) (time.Duration, error) {
	bin := p.BinaryPath
	if bin == "" {
		bin = "ffprobe"
	}
	cmd := exec.CommandContext(ctx, bin,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return 0, taxonomy.NewInputInvalid("ffprobe failed to read mp3 duration: "+path, err)
	}
	seconds, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, taxonomy.NewInputInvalid("ffprobe returned non-numeric duration for "+path, err)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}
