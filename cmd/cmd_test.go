package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zalepa/roadwatch/chart"
	"github.com/zalepa/roadwatch/dataset"
)

const boundaries = `{"type":"FeatureCollection","features":[
{"type":"Feature","properties":{"STATE_NAME":"Victoria"},"geometry":{"type":"Polygon","coordinates":[[[141,-39],[150,-39],[150,-34],[141,-34],[141,-39]]]}},
{"type":"Feature","properties":{"STATE_NAME":"South Australia"},"geometry":{"type":"Polygon","coordinates":[[[129,-38],[141,-38],[141,-26],[129,-26],[129,-38]]]}}
]}`

var dataFiles = map[string]string{
	"total-drug-test.csv": "YEAR,JURISDICTION,LOCATION,AGE_GROUP,COUNT\n" +
		"2021,VIC,Major Cities,18-24,100\n2021,SA,Major Cities,25-34,80\n2022,SA,Inner Regional,25-34,90\n",
	"positive-drug.csv": "YEAR,JURISDICTION,LOCATION,AGE_GROUP,COUNT\n" +
		"2021,VIC,Major Cities,18-24,7\n2021,SA,Major Cities,25-34,4\n2022,SA,Inner Regional,25-34,6\n",
	"no-seatbelts.csv": "YEAR,JURISDICTION,AGE_GROUP,DETECTION_METHOD,FINES\n" +
		"2021,SA,All ages,police issued,100\n2022,NSW,26-39,mobile camera,40\n",
	"drug-consequence.csv":         "Year,Stats Area,AGE,CSEF Severity\n2021,Adelaide,17-25,1: PDO\n2022,Adelaide,40-64,4: Fatal\n",
	"no-seatbelts-consequence.csv": "Year,Stats Area,AGE_GROUP,Injury Extent\n2021,Adelaide,40-64,Fatal\n",
	"aus-states.geojson":           boundaries,
}

// resetFlags restores every flag to its default so commands can run more
// than once in a process.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			var def []string
			if s := strings.Trim(f.DefValue, "[]"); s != "" {
				def = strings.Split(s, ",")
			}
			_ = sv.Replace(def)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// writeConfig writes the data files (unless empty) and a config pointing at
// them, returning the config path and data directory.
func writeConfig(t *testing.T, withData bool, extra string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	data := filepath.Join(dir, "data")
	require.NoError(t, os.MkdirAll(data, 0o755))
	if withData {
		for name, body := range dataFiles {
			require.NoError(t, os.WriteFile(filepath.Join(data, name), []byte(body), 0o644))
		}
	}
	body := "data:\n" +
		"  drug_tests: " + filepath.Join(data, "total-drug-test.csv") + "\n" +
		"  positive_drug: " + filepath.Join(data, "positive-drug.csv") + "\n" +
		"  seatbelt_fines: " + filepath.Join(data, "no-seatbelts.csv") + "\n" +
		"  drug_crash: " + filepath.Join(data, "drug-consequence.csv") + "\n" +
		"  seatbelt_crash: " + filepath.Join(data, "no-seatbelts-consequence.csv") + "\n" +
		"  boundaries: " + filepath.Join(data, "aus-states.geojson") + "\n" +
		"charts:\n  drug_years: {from: 2021, to: 2022}\n  crash_years: {from: 2021, to: 2022}\n" +
		extra
	path := filepath.Join(dir, "roadwatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path, data
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out bytes.Buffer
	err := run(context.Background(), &out, args...)
	return out.String(), err
}

func TestVizText(t *testing.T) {
	config, _ := writeConfig(t, true, "")
	out, err := execute(t, "--config", config, "viz", "--page", "drug", "--set", "jurisdiction=VIC")
	require.NoError(t, err)

	assert.Contains(t, out, "Positive Drug Tests")
	assert.Contains(t, out, "Filters: Jurisdiction: VIC")
	assert.Contains(t, out, "Positivity Rate:")
	assert.Contains(t, out, "7.0%")
}

func TestVizClicks(t *testing.T) {
	config, _ := writeConfig(t, true, "")
	out, err := execute(t, "--config", config, "viz", "--page", "drug", "--click", "drug-bar=SA")
	require.NoError(t, err)
	assert.Contains(t, out, "> SA")
	assert.Contains(t, out, ". VIC")

	out, err = execute(t, "--config", config, "viz", "--page", "drug", "--click", "drug-bar=SA", "--click", "drug-bar=")
	require.NoError(t, err)
	assert.NotContains(t, out, "> SA")
}

func TestVizFiles(t *testing.T) {
	config, _ := writeConfig(t, true, "")
	dir := filepath.Join(t.TempDir(), "charts")
	out, err := execute(t, "--config", config, "viz", "-p", "seatbelt", "--out", dir, "--format", "svg")
	require.NoError(t, err)
	assert.Contains(t, out, "wrote 3 charts")

	for _, id := range chart.PageCharts(dataset.PageSeatbelt) {
		data, err := os.ReadFile(filepath.Join(dir, string(id)+".svg"))
		require.NoError(t, err)
		assert.Contains(t, string(data), "<svg")
	}
}

func TestVizErrors(t *testing.T) {
	config, _ := writeConfig(t, true, "")
	cases := []struct {
		name string
		args []string
		want string
	}{
		{"page", []string{"--page", "traffic"}, "unknown page"},
		{"set syntax", []string{"--set", "year"}, "want dimension=value"},
		{"dimension", []string{"--set", "colour=red"}, "unknown filter dimension"},
		{"click syntax", []string{"--click", "drug-bar"}, "want chart=key"},
		{"chart", []string{"--click", "radar=SA"}, "unknown chart"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := execute(t, append([]string{"--config", config, "viz"}, tc.args...)...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}

	missing, _ := writeConfig(t, false, "")
	_, err := execute(t, "--config", missing, "viz")
	assert.ErrorIs(t, err, dataset.ErrLoad)
}

func TestReport(t *testing.T) {
	config, _ := writeConfig(t, true, "")
	pdf := filepath.Join(t.TempDir(), "report.pdf")
	out, err := execute(t, "--config", config, "report", "--out", pdf, "--pages", "drug,seatbelt", "--set", "year=2021")
	require.NoError(t, err)
	assert.Contains(t, out, "(9 pages)")

	_, err = os.Stat(pdf)
	assert.NoError(t, err)

	_, err = execute(t, "--config", config, "report", "--out", pdf, "--pages", "drug,nope")
	assert.ErrorIs(t, err, dataset.ErrUnknownPage)
}

func TestOptions(t *testing.T) {
	config, _ := writeConfig(t, true, "")
	out, err := execute(t, "--config", config, "--log-level", "error", "options")
	require.NoError(t, err)

	var got map[dataset.Page]dataset.Options
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Len(t, got, 3)
	assert.Equal(t, []string{"SA", "VIC"}, got[dataset.PageDrug].Jurisdictions)
	assert.Equal(t, []string{"drug", "seatbelt"}, got[dataset.PageCrash].ViolationTypes)

	out, err = execute(t, "--config", config, "--log-level", "error", "options", "-p", "seatbelt")
	require.NoError(t, err)
	got = nil
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Len(t, got, 1)
	assert.Equal(t, []string{"2021", "2022"}, got[dataset.PageSeatbelt].Years)
}

func TestConfigCommand(t *testing.T) {
	config, _ := writeConfig(t, false, "server:\n  max_sessions: 12\n")
	out, err := execute(t, "--config", config, "config")
	require.NoError(t, err)
	assert.Contains(t, out, "max_sessions: 12")
	assert.Contains(t, out, "from: 2021")

	_, err = execute(t, "--config", config, "--log-level", "loud", "config")
	assert.ErrorContains(t, err, `unknown level "loud"`)
}

func TestFetch(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		body, ok := dataFiles[filepath.Base(r.URL.Path)]
		if !ok || !strings.HasPrefix(r.URL.Path, "/pub/") {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(body))
	}))
	defer srv.Close()

	config, data := writeConfig(t, false, "fetch:\n  base_url: "+srv.URL+"/pub\n")
	out, err := execute(t, "--config", config, "fetch")
	require.NoError(t, err)
	assert.Contains(t, out, "Done: 6 downloaded, 0 skipped")
	got, err := os.ReadFile(filepath.Join(data, "no-seatbelts.csv"))
	require.NoError(t, err)
	assert.Equal(t, dataFiles["no-seatbelts.csv"], string(got))

	out, err = execute(t, "--config", config, "fetch")
	require.NoError(t, err)
	assert.Contains(t, out, "Done: 0 downloaded, 6 skipped")
	assert.Equal(t, int32(6), hits.Load())

	_, err = execute(t, "--config", config, "fetch", "--force", "--base-url", srv.URL+"/elsewhere")
	assert.ErrorContains(t, err, "status 404")
}
