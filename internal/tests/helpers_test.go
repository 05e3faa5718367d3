package tests

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/javajoker/agency-onboarding/internal/config"
	"github.com/javajoker/agency-onboarding/internal/services"
)

type engine struct {
	store     *memStore
	service   *services.OnboardingService
	uploadDir string
	cfg       *config.Config
}

func testConfig(uploadDir string) *config.Config {
	return &config.Config{
		Environment: "test",
		Database:    config.DatabaseConfig{TxTimeout: 5},
		Storage: config.StorageConfig{
			UploadDir:       uploadDir,
			MaxFileSize:     1 << 20,
			MaxFiles:        5,
			MaxRequestBytes: 8 << 20,
		},
		RateLimit: config.RateLimitConfig{UploadsPerMinute: 6000, UploadBurst: 1000},
		CORS:      config.CORSConfig{AllowedOrigins: []string{"*"}},
	}
}

func newEngine(t *testing.T) *engine {
	t.Helper()
	dir := t.TempDir()
	cfg := testConfig(dir)
	store := newMemStore()
	return &engine{
		store:     store,
		service:   services.NewOnboardingService(store, services.NewLocalStorage(dir), cfg),
		uploadDir: dir,
		cfg:       cfg,
	}
}

// storedFiles lists the upload directory of one application.
func (e *engine) storedFiles(t *testing.T, appID string) []string {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(e.uploadDir, appID))
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names
}

func submission(appID string, step int, action string, formData interface{}) *services.StepSubmission {
	env := services.StepEnvelope{
		StepNumber: json.RawMessage(strconv.Itoa(step)),
		Action:     action,
	}
	if formData != nil {
		raw, err := json.Marshal(formData)
		if err != nil {
			panic(err)
		}
		env.FormData = raw
	}
	return &services.StepSubmission{RequestUUID: appID, Envelope: env}
}

type fileUpload struct {
	field    string
	filename string
	content  string
}

func fileHeaders(t *testing.T, uploads ...fileUpload) map[string][]*multipart.FileHeader {
	t.Helper()

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for _, u := range uploads {
		part, err := w.CreateFormFile(u.field, u.filename)
		require.NoError(t, err)
		_, err = part.Write([]byte(u.content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(body, w.Boundary()).ReadForm(10 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { form.RemoveAll() })
	return form.File
}

type object = map[string]interface{}

func address(city string) object {
	return object{
		"addressLine1": "12 MG Road",
		"addressLine2": "Fort",
		"city":         city,
		"state":        "Maharashtra",
		"pincode":      "400001",
	}
}

func firmDetails(name string) object {
	return object{
		"firmName":              name,
		"registrationNumber":    "U74999MH2010PTC123456",
		"panNumber":             "ABCDE1234F",
		"gstNumber":             "27ABCDE1234F1Z5",
		"correspondenceAddress": address("Mumbai"),
		"permanentAddress":      address("Mumbai"),
		"emailAddress":          "contact@acme.example",
		"mobileNumber":          "9876543210",
	}
}

func person(name, pan string) object {
	return object{
		"title":                 "Mr",
		"name":                  name,
		"fatherName":            "Suresh Kumar",
		"dateOfBirth":           "1980-05-01",
		"wealthTaxRegistration": "No",
		"panNumber":             pan,
		"aadhaarNumber":         "123412341234",
		"correspondenceAddress": address("Pune"),
		"permanentAddress":      address("Pune"),
		"emailAddress":          "person@acme.example",
		"mobileNumber":          "9123456780",
	}
}

func roster(people ...object) object {
	list := make([]interface{}, 0, len(people))
	for _, p := range people {
		list = append(list, p)
	}
	return object{"personnel": list}
}

func education(qualification string, year int) object {
	return object{
		"qualification":     qualification,
		"yearOfPassing":     strconv.Itoa(year),
		"marksPercent":      "72.5",
		"gradeClass":        "First",
		"universityCollege": "University of Mumbai",
	}
}

func qualifications(personnelID string, edu ...object) object {
	list := make([]interface{}, 0, len(edu))
	for _, q := range edu {
		list = append(list, q)
	}
	return object{"personnel": []interface{}{object{
		"personnel_id":               personnelID,
		"educationalQualifications":  list,
		"professionalQualifications": []interface{}{},
	}}}
}

func experience(personnelID string) object {
	return object{"personnel": []interface{}{object{
		"personnel_id": personnelID,
		"experienceDetails": []interface{}{object{
			"currentlyInPracticeOrEmployment": "Employment",
			"yearsInEmployment":               "6",
			"monthsInEmployment":              "4",
			"fromDate":                        "2015-04-01",
			"toDate":                          "2021-08-31",
			"employerNameAndDesignation":      "Acme, Manager",
			"areaOfWork":                      "Valuation",
		}},
	}}}
}

func background() object {
	return object{
		"convictedOffence":     "No",
		"criminalProceedings":  "No",
		"undischargedBankrupt": "No",
	}
}
