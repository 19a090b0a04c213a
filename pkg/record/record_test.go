package record

import (
	"encoding/csv"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecord_Row_SparseColumns(t *testing.T) {
	r := &Record{
		Language: "rust", Scenario: "fib", Test: "0",
		Niceness: -5, Affinity: "0,1", Mode: "internal", Iteration: 1,
		Pkg:          12.5,
		CStateCoreResidency: map[string]float64{"c1_core_residency": 0.2},
		Collected: map[string]bool{
			"pkg":               true,
			"c1_core_residency": true,
		},
		EndedUsEpoch: 1700000000000000,
	}

	cols := []string{"c1_core_residency", "c3_core_residency"}
	row := r.Row(cols)

	require.Equal(t, "rust", row[0])
	require.Equal(t, "fib", row[1])
	require.Equal(t, "0", row[2])
	require.Equal(t, "-5", row[3])
	require.Equal(t, "0,1", row[4])
	require.Equal(t, "internal", row[5])
	require.Equal(t, "1", row[6])

	// time wasn't marked Collected, so it's blank even though TimeUs is zero.
	require.Equal(t, "", row[7])
	// pkg was collected.
	require.Equal(t, "12.500", row[8])

	require.Equal(t, "1700000000000000", row[len(row)-1])
}

func TestWriter_HeaderWrittenOnce(t *testing.T) {
	path := t.TempDir() + "/out.csv"
	cstateCols := []string{"c1_core_residency"}

	w, err := NewWriter(path, cstateCols)
	require.NoError(t, err)
	require.NoError(t, w.Write(&Record{
		Language: "c", Scenario: "s", Test: "0", Mode: "process",
		Collected:    map[string]bool{},
		EndedUsEpoch: 1,
	}))
	require.NoError(t, w.Close())

	// Re-opening and writing again must not duplicate the header.
	w2, err := NewWriter(path, cstateCols)
	require.NoError(t, err)
	require.NoError(t, w2.Write(&Record{
		Language: "c", Scenario: "s", Test: "1", Mode: "process",
		Collected:    map[string]bool{},
		EndedUsEpoch: 2,
	}))
	require.NoError(t, w2.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	// header + 2 data rows, exactly one header.
	require.Len(t, rows, 3)
	require.Equal(t, "language", rows[0][0])
	require.Equal(t, "ended_us_epoch", rows[0][len(rows[0])-1])
}
