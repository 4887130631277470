package handler_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/students-api/internal/dto"
	"github.com/noah-isme/students-api/internal/service"
)

func compileSchema(t *testing.T, name string) *jsonschema.Schema {
	t.Helper()
	path, err := filepath.Abs(filepath.Join("testdata", name))
	require.NoError(t, err)

	schema, err := jsonschema.NewCompiler().Compile("file://" + path)
	require.NoError(t, err)
	return schema
}

func validateBody(t *testing.T, schema *jsonschema.Schema, resp *http.Response) {
	t.Helper()
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var payload interface{}
	require.NoError(t, json.Unmarshal(raw, &payload))
	require.NoError(t, schema.Validate(payload), string(raw))
}

func TestStudentContract(t *testing.T) {
	student := compileSchema(t, "student.schema.json")
	list := compileSchema(t, "student_list.schema.json")
	validationErrors := compileSchema(t, "validation_error.schema.json")
	errorBody := compileSchema(t, "error.schema.json")

	svc := &mockStudentService{
		response: sampleStudent,
		list: []dto.StudentResponse{
			sampleStudent,
			{ID: 2, FirstName: "Anna", LastName: "Smith", BirthDate: "1999-12-31", Course: 1, IsErasmus: true},
		},
	}
	app := newTestApp(svc, nil)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/students/1", nil))
	require.NoError(t, err)
	validateBody(t, student, resp)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/students", nil))
	require.NoError(t, err)
	validateBody(t, list, resp)

	svc.list = []dto.StudentResponse{}
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/students?search=nobody", nil))
	require.NoError(t, err)
	validateBody(t, list, resp)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/students/abc", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	validateBody(t, errorBody, resp)

	svc.err = &service.ValidationError{Errors: []string{"First name must contain only letters.", "Course must be a positive number."}}
	resp, err = app.Test(jsonRequest(t, http.MethodPost, "/students", `{"first_name":"","last_name":"Doe","birth_date":"2001-02-03","course":0}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	validateBody(t, validationErrors, resp)
}
