package platform_test

import (
	"context"
	"fmt"
	"log"

	"github.com/watchthelight/hginstall/internal/platform"
)

func ExampleDetector_Detect() {
	info, err := platform.NewDetector().Detect(context.Background())
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Target: %s\n", info.Platform())

	if distro := info.GetDistro(); distro != nil {
		fmt.Printf("Distribution: %s (%s family)\n", distro.ID, distro.Family)
	}
}

func ExampleParse() {
	p, err := platform.Parse("macos/x86_64")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(p.Key())
	// Output: darwin_amd64
}

func ExampleStaticDetector() {
	d := platform.StaticDetector{Target: platform.Platform{OS: "linux", Arch: "arm64"}}
	info, _ := d.Detect(context.Background())
	fmt.Println(info.Platform())
	// Output: linux/arm64
}
