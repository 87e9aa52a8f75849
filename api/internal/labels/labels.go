// Package labels reads YOLO text label artifacts.
//
// Each line is "<class> [x y w h [conf]]". Only the class id is used.
// A missing file, an empty file and a file with no usable lines all produce
// an empty hand; the caller cannot tell them apart. The distinction is only
// visible in the logs.
package labels

import (
	"bufio"
	"errors"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"mahjong-advisor/api/internal/tiles"
)

// Parse reads the label file at path. It never fails.
func Parse(path string) tiles.Hand {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Info().Str("path", path).Msg("label file not found")
		} else {
			log.Warn().Err(err).Str("path", path).Msg("open label file")
		}
		return tiles.Hand{}
	}
	defer f.Close()

	hand := ParseReader(f)
	if hand.Empty() {
		log.Info().Str("path", path).Msg("no usable detections in label file")
	}
	return hand
}

// ParseReader applies the line policy to r. Lines have no length limit, so
// one oversized garbage line is skipped like any other. A read error ends the
// parse and keeps whatever was collected so far.
func ParseReader(r io.Reader) tiles.Hand {
	hand := tiles.Hand{}
	br := bufio.NewReader(r)
	lineNo := 0
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			lineNo++
			if name, ok := parseLine(lineNo, line); ok {
				hand = append(hand, name)
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Warn().Err(err).Int("line", lineNo).Msg("read label file")
			}
			return hand
		}
	}
}

func parseLine(lineNo int, line string) (string, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", false
	}
	id, err := strconv.Atoi(fields[0])
	if err != nil {
		log.Debug().Int("line", lineNo).Int("len", len(fields[0])).Msg("skip: class id is not an integer")
		return "", false
	}
	name, ok := tiles.Name(id)
	if !ok {
		log.Debug().Int("line", lineNo).Int("class_id", id).Msg("skip: class id out of range")
		return "", false
	}
	log.Debug().Int("line", lineNo).Str("tile", name).Msg("detected tile")
	return name, true
}

// Format renders one YOLO label line.
func Format(classID int, x, y, w, h, conf float64) string {
	return strconv.Itoa(classID) + " " +
		strconv.FormatFloat(x, 'f', 6, 64) + " " +
		strconv.FormatFloat(y, 'f', 6, 64) + " " +
		strconv.FormatFloat(w, 'f', 6, 64) + " " +
		strconv.FormatFloat(h, 'f', 6, 64) + " " +
		strconv.FormatFloat(conf, 'f', 6, 64)
}
