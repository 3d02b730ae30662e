package htmlutil

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const page = `<html><body>
<table>
	<tr><th>NRC</th><th>Clave</th></tr>
	<tr><td>216502</td><td>IL340</td><td><table><tr><td>0700-0855</td></tr></table></td></tr>
</table>
<p>footer</p>
<table><tr><td>Consulta   de oferta</td></tr></table>
</body></html>`

func TestCountTopLevelTables(t *testing.T) {
	count, err := CountTopLevelTables(context.Background(), strings.NewReader(page))
	require.NoError(t, err)
	require.Equal(t, 2, count)

	count, err = CountTopLevelTables(context.Background(), strings.NewReader("<p>nothing</p>"))
	require.NoError(t, err)
	require.Equal(t, 0, count)
}

func TestTableCaptions(t *testing.T) {
	captions, err := TableCaptions(context.Background(), strings.NewReader(page))
	require.NoError(t, err)
	require.Equal(t, []string{"NRC Clave", "Consulta de oferta"}, captions)
}
