package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// ConfirmDeploy asks the user to approve an execution that will call
// out to a provider. Returns true if the user approves.
func ConfirmDeploy(provider, method string) (bool, error) {
	fmt.Fprintf(os.Stderr, "\nAbout to deploy via %s (%s).\n", provider, method)
	return promptYesNo("Proceed with the deployment?")
}

// promptYesNo prompts the user for a yes/no response
func promptYesNo(question string) (bool, error) {
	reader := bufio.NewReader(os.Stdin)

	fmt.Fprintf(os.Stderr, "%s [y/N]: ", question)

	response, err := reader.ReadString('\n')
	if err != nil {
		return false, err
	}

	response = strings.TrimSpace(strings.ToLower(response))

	switch response {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
