// Package detect holds the pure classification heuristics: cloud
// provider inference, anomaly patterns, takeover fingerprints and
// technology fingerprinting. Nothing here touches the network.
package detect

import "strings"

// Cloud provider identifiers.
const (
	ProviderAWS          = "aws"
	ProviderAzure        = "azure"
	ProviderGCP          = "gcp"
	ProviderCloudflare   = "cloudflare"
	ProviderDigitalOcean = "digitalocean"
	ProviderHeroku       = "heroku"
	ProviderVercel       = "vercel"
	ProviderNetlify      = "netlify"
)

type cloudPattern struct {
	provider string
	patterns []string
}

// cloudPatterns are substring matches applied to a candidate name and
// its CNAME. The pattern sets are disjoint in practice, so order does
// not matter; first match wins.
var cloudPatterns = []cloudPattern{
	{ProviderAWS, []string{"amazonaws.com", "s3.", "ec2.", ".elb.", "cloudfront.net", "awsglobal"}},
	{ProviderAzure, []string{"azurewebsites.net", "cloudapp.azure.com", "blob.core.windows.net", "azureedge.net", "trafficmanager.net"}},
	{ProviderGCP, []string{"googleapis.com", "appspot.com", "googleusercontent.com", "run.app"}},
	{ProviderCloudflare, []string{"cloudflare.net", "workers.dev", "pages.dev", "cdn.cloudflare"}},
	{ProviderDigitalOcean, []string{"digitaloceanspaces.com", "ondigitalocean.app"}},
	{ProviderHeroku, []string{"herokuapp.com", "herokudns.com", "herokussl.com"}},
	{ProviderVercel, []string{"vercel.app", "vercel-dns.com", "now.sh"}},
	{ProviderNetlify, []string{"netlify.app", "netlify.com", "netlifyglobalcdn.com"}},
}

// CloudProvider infers the hosting provider from the candidate name and
// its CNAME target. Returns "" when nothing matches.
func CloudProvider(name, cname string) string {
	name = strings.ToLower(name)
	cname = strings.ToLower(cname)
	for _, cp := range cloudPatterns {
		for _, p := range cp.patterns {
			if strings.Contains(name, p) || (cname != "" && strings.Contains(cname, p)) {
				return cp.provider
			}
		}
	}
	return ""
}
