package webutils

import (
	"bytes"
	"encoding/json"
	"io"
	"io/ioutil"
	"log"
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

func WriteFileHeaders(w http.ResponseWriter, name string, contentType string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "attachment; filename=\""+name+"\"")
}

func WriteFile(w http.ResponseWriter, in io.Reader, name string, contentType string) {
	WriteFileHeaders(w, name, contentType)
	if _, err := io.Copy(w, in); err != nil {
		log.Printf("[web] Error when writing file %q: %v", name, err)
	}
}

func WriteJson(w http.ResponseWriter, data interface{}) {
	res, err := json.Marshal(data)
	if err != nil {
		WriteError(w, err)
	} else {
		w.Header().Set("Content-Type", "application/json")
		WriteResult(w, res)
	}
}

func WriteText(w http.ResponseWriter, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	WriteResult(w, []byte(text))
}

// ReadFormFile returns the multipart file under formFileKey. Requests that
// are not multipart are read whole as the file.
func ReadFormFile(r *http.Request, formFileKey string) ([]byte, error) {
	if strings.ToUpper(r.Method) != "POST" {
		return nil, errors.Errorf("Invalid http method %q", r.Method)
	}

	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		data, err := ioutil.ReadAll(r.Body)
		if err != nil {
			return nil, errors.Wrapf(err, "Failed to read body")
		}
		if len(data) == 0 {
			return nil, errors.Errorf("Empty request body")
		}
		return data, nil
	}

	f, _, err := r.FormFile(formFileKey)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to get file %q", formFileKey)
	}
	defer f.Close()

	data, err := ioutil.ReadAll(f)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to read %q", formFileKey)
	}
	return data, nil
}

// ReadOptionalFormFile is ReadFormFile for a multipart field that may be
// missing; nil data means it was not sent.
func ReadOptionalFormFile(r *http.Request, formFileKey string) ([]byte, error) {
	f, _, err := r.FormFile(formFileKey)
	if err == http.ErrMissingFile || err == http.ErrNotMultipart {
		return nil, nil
	} else if err != nil {
		return nil, errors.Wrapf(err, "Failed to get file %q", formFileKey)
	}
	defer f.Close()

	data, err := ioutil.ReadAll(f)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to read %q", formFileKey)
	}
	return data, nil
}

func WriteAttachment(w http.ResponseWriter, data []byte, name string, contentType string) {
	WriteFile(w, bytes.NewReader(data), name, contentType)
}

func WriteResult(w http.ResponseWriter, data []byte) {
	_, err := w.Write(data)
	if err != nil {
		log.Printf("[web] Error when writing response: %v", err)
	}
}

func WriteError(w http.ResponseWriter, err error) {
	type jError struct {
		Error string `json:"error"`
	}
	data, merr := json.Marshal(&jError{Error: err.Error()})
	if merr == nil {
		log.Printf("[web] HERR: %v", string(data))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		WriteResult(w, data)
	} else {
		log.Printf("[web] Error marshaling error '%v': %v", err, merr)
	}
}
