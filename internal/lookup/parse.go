package lookup

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
)

// productResponse mirrors the document returned by the product endpoint:
//
//	<root>
//	  <name>CPU Name</name>
//	  <configCode>iMac (27-inch, Late 2013)</configCode>
//	  <locale>en_US</locale>
//	</root>
type productResponse struct {
	XMLName     xml.Name     `xml:"root"`
	Name        string       `xml:"name"`
	ConfigCodes []configCode `xml:"configCode"`
	Locale      string       `xml:"locale"`
}

type configCode struct {
	Text string `xml:",chardata"`
}

// ParseModelName extracts the text of the first root/configCode element.
// A present but empty configCode yields "" with no error.
func ParseModelName(body []byte) (string, error) {
	var resp productResponse
	dec := xml.NewDecoder(bytes.NewReader(body))
	// Non-UTF-8 declarations are read as-is.
	dec.CharsetReader = passthroughCharset
	if err := dec.Decode(&resp); err != nil {
		return "", fmt.Errorf("failed to decode product response: %w", err)
	}

	if len(resp.ConfigCodes) == 0 {
		return "", fmt.Errorf("product response has no configCode element")
	}

	return resp.ConfigCodes[0].Text, nil
}

func passthroughCharset(_ string, input io.Reader) (io.Reader, error) {
	return input, nil
}
