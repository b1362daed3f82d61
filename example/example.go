// Command example reads a pcap file, reconstructs the TCP flows in it,
// and prints one identification per flow: the transport score, any TLS
// handshake match, and any cleartext HTTP/2 signature, combined into a
// single confidence.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/vistone/wireprint"
	"github.com/vistone/wireprint/capture"
	"github.com/vistone/wireprint/detect"
	"github.com/vistone/wireprint/h2sig"
)

type report struct {
	Client string  `json:"client"`
	Server string  `json:"server"`
	Label  string  `json:"label,omitempty"`
	Veri   string  `json:"version,omitempty"`
	Conf   float64 `json:"confidence"`
	JA3    string  `json:"ja3,omitempty"`
}

func analyzeFile(file string, db *wireprint.SignatureDB, maxFlows, maxPackets uint32) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	reader, err := pcapgo.NewReader(f)
	if err != nil {
		return fmt.Errorf("pcap open: %w", err)
	}

	recon := capture.NewReconstructor(capture.Limits{
		MaxFlows:   int(maxFlows),
		MaxPackets: int(maxPackets),
	})

	for {
		data, _, err := reader.ReadPacketData()
		if err != nil {
			break // EOF or short read ends the capture
		}
		gp := gopacket.NewPacket(data, layers.LayerTypeEthernet, gopacket.Lazy)
		pkt, ok := capture.FromGoPacket(gp)
		if !ok {
			continue
		}
		if err := recon.Add(&pkt); err != nil {
			log.Printf("capture halted: %v", err)
			break
		}
	}

	pipeline := detect.NewPipeline(db, h2sig.NewAnalyzer(), detect.DefaultConfig())

	flows := recon.Flows()
	for i := range flows {
		flow := &flows[i]
		res := pipeline.AnalyzeFlow(flow)

		out := report{
			Client: fmt.Sprintf("%s:%d", flow.Client.Addr, flow.Client.Port),
			Server: fmt.Sprintf("%s:%d", flow.Server.Addr, flow.Server.Port),
			Label:  res.Label,
			Veri:   res.Version,
			Conf:   res.Confidence,
		}
		if payload, ok := flow.ClientHelloPayload(); ok {
			if hello, err := wireprint.ParseClientHello(payload); err == nil {
				out.JA3 = wireprint.FingerprintFromClientHello(hello).NormHash
			}
		}

		enc, err := json.Marshal(out)
		if err != nil {
			return err
		}
		fmt.Printf("%s\n", enc)
	}

	stats := recon.Stats()
	log.Printf("packets=%d flows=%d established=%d", stats.Packets, stats.Flows, stats.Established)
	return nil
}

func loadDatabase(path string) (*wireprint.SignatureDB, error) {
	seeds := wireprint.DefaultSignatures()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		seeds, err = wireprint.LoadSignatures(data)
		if err != nil {
			return nil, err
		}
	}
	return wireprint.NewSignatureDB(seeds, wireprint.DefaultMatcherConfig())
}

func main() {
	file := flag.String("f", "", "pcap file to analyze")
	sigs := flag.String("sigs", "", "signature database (YAML), empty uses the built-in set")
	maxFlows := flag.Uint("max-flows", 4096, "flow table limit")
	maxPackets := flag.Uint("max-packets", 1<<20, "packet limit")
	flag.Parse()

	if *file == "" {
		flag.Usage()
		os.Exit(2)
	}

	db, err := loadDatabase(*sigs)
	if err != nil {
		log.Fatalf("signatures: %v", err)
	}

	if err := analyzeFile(*file, db, uint32(*maxFlows), uint32(*maxPackets)); err != nil {
		log.Fatalf("analyze: %v", err)
	}
}
