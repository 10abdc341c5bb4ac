package dispatch

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/snapetech/m4hls/bmff"
	"github.com/snapetech/m4hls/errs"
	"github.com/snapetech/m4hls/moov"
)

// openSource opens path and parses its moov box. The caller owns the
// returned file and must close it; samples are read from it by absolute
// file offset later, so it must stay open for the lifetime of the request.
func openSource(path string, log zerolog.Logger) (*moov.Movie, *os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, errs.At(errs.BadRequest, "source", 0, err)
		}
		return nil, nil, errs.At(errs.IoFailure, "source", 0, err)
	}

	data, err := readMoovBody(f)
	if err != nil {
		f.Close()
		return nil, nil, err
	}

	m, err := moov.NewParser(log).Parse(data)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return m, f, nil
}

// readMoovBody returns the moov box's content, requiring that the source
// also carry an mdat box: spec §6 lists both as required top-level boxes,
// and a moov with no sample data to back it is not a usable source.
func readMoovBody(f *os.File) ([]byte, error) {
	var moovData []byte
	var sawMdat bool

	sc := bmff.NewScanner(f)
	for sc.Next() {
		e := sc.Entry()
		switch e.Type {
		case bmff.TypeMoov:
			buf := make([]byte, e.DataSize())
			if err := sc.ReadBody(buf); err != nil {
				return nil, err
			}
			moovData = buf
		case bmff.TypeMdat:
			sawMdat = true
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if moovData == nil {
		return nil, errs.At(errs.NoMovieOrMedia, "moov", 0, nil)
	}
	if !sawMdat {
		return nil, errs.At(errs.NoMovieOrMedia, "mdat", 0, nil)
	}
	return moovData, nil
}
