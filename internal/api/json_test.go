package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/oseayemenre/bookshelf/internal/models"
)

func TestRespondWithSuccess(t *testing.T) {
	w := httptest.NewRecorder()
	data := struct {
		Name string
	}{
		Name: "fake_data",
	}

	respondWithSuccess(w, http.StatusOK, data)

	if w.Code != http.StatusOK {
		t.Fatalf("expected %d, got %d", http.StatusOK, w.Code)
	}

	header, ok := w.Header()["Content-Type"]

	if !ok {
		t.Fatal("expected application/json, got \"\"")
	}

	if header[0] != "application/json" {
		t.Fatalf("expected application/json, got %s", header[0])
	}

	var got struct {
		Name string
	}

	err := json.Unmarshal(w.Body.Bytes(), &got)
	if err != nil {
		t.Fatalf("error unmarshalling response: %v", err)
	}

	if !reflect.DeepEqual(got, data) {
		t.Fatalf("expected %+v, got %+v", data, got)
	}
}

func TestRespondWithError(t *testing.T) {
	w := httptest.NewRecorder()

	respondWithError(w, http.StatusNotFound, errors.New("Book not found"))

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected %d, got %d", http.StatusNotFound, w.Code)
	}

	var got models.ErrorResponse

	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("error unmarshalling response: %v", err)
	}

	if got.Error != "Book not found" {
		t.Fatalf("expected Book not found, got %s", got.Error)
	}
}

func TestDecodeJson(t *testing.T) {
	expect := struct {
		Name string
	}{
		Name: "fake_data",
	}

	body, err := json.Marshal(&expect)

	if err != nil {
		t.Fatalf("error marshalling body: %v", err)
	}

	a := &Api{logger: &testLogger{}}

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBuffer(body))
	w := httptest.NewRecorder()

	got := struct{ Name string }{}

	if err := a.decodeJson(w, req, &got, "TestDecodeJson"); err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(expect, got) {
		t.Fatalf("expected %+v, got %+v", expect, got)
	}
}

func TestDecodeJsonErrors(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		limit        int64
		expectedCode int
	}{
		{
			name:         "should return 400 if body is empty",
			body:         "",
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "should return 400 if body is malformed",
			body:         `{"Name":`,
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "should return 413 if body exceeds the limit",
			body:         `{"Name":"` + strings.Repeat("x", 64) + `"}`,
			limit:        16,
			expectedCode: http.StatusRequestEntityTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &Api{logger: &testLogger{}}

			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			if tt.limit > 0 {
				req.Body = http.MaxBytesReader(w, req.Body, tt.limit)
			}

			got := struct{ Name string }{}

			if err := a.decodeJson(w, req, &got, "TestDecodeJsonErrors"); err == nil {
				t.Fatal("expected error, got nil")
			}

			if w.Code != tt.expectedCode {
				t.Fatalf("expected %d, got %d", tt.expectedCode, w.Code)
			}
		})
	}
}
