package detect

import "strings"

// takeoverFingerprint maps a dangling-service CNAME suffix to the body
// signatures the de-provisioned service serves. A suffix match alone
// marks the candidate vulnerable; verification additionally requires a
// body signature (or, for GitHub Pages, a plain 404).
type takeoverFingerprint struct {
	Service    string
	Suffixes   []string
	Signatures []string
	Verify404  bool
}

var takeoverFingerprints = []takeoverFingerprint{
	{
		Service:    "AWS S3",
		Suffixes:   []string{".s3.amazonaws.com", ".s3-website.amazonaws.com"},
		Signatures: []string{"nosuchbucket", "the specified bucket does not exist"},
	},
	{
		Service:    "Heroku",
		Suffixes:   []string{".herokuapp.com", ".herokudns.com"},
		Signatures: []string{"no such app", "herokucdn.com/error-pages"},
	},
	{
		Service:    "Azure",
		Suffixes:   []string{".azurewebsites.net", ".cloudapp.azure.com", ".trafficmanager.net", ".azureedge.net"},
		Signatures: []string{"404 web site not found", "this page is parked free"},
	},
	{
		Service:    "GitHub Pages",
		Suffixes:   []string{".github.io"},
		Signatures: []string{"there isn't a github pages site here"},
		Verify404:  true,
	},
	{
		Service:    "Pantheon",
		Suffixes:   []string{".pantheon.io", ".pantheonsite.io"},
		Signatures: []string{"404 error unknown site"},
	},
	{
		Service:    "Fastly",
		Suffixes:   []string{".fastly.net"},
		Signatures: []string{"fastly error: unknown domain"},
	},
	{
		Service:    "Netlify",
		Suffixes:   []string{".netlify.app", ".netlify.com"},
		Signatures: []string{"not found - request id"},
	},
	{
		Service:    "Shopify",
		Suffixes:   []string{".myshopify.com"},
		Signatures: []string{"sorry, this shop is currently unavailable"},
	},
	{
		Service:    "Surge",
		Suffixes:   []string{".surge.sh"},
		Signatures: []string{"project not found"},
	},
	{
		Service:    "Ghost",
		Suffixes:   []string{".ghost.io"},
		Signatures: []string{"the thing you were looking for is no longer here"},
	},
	{
		Service:    "CloudFront",
		Suffixes:   []string{".cloudfront.net"},
		Signatures: []string{"the request could not be satisfied"},
	},
	{
		Service:    "Elastic Beanstalk",
		Suffixes:   []string{".elasticbeanstalk.com"},
		Signatures: []string{"404 not found"},
	},
	{
		Service:    "Azure Blob Storage",
		Suffixes:   []string{".blob.core.windows.net"},
		Signatures: []string{"the specified blob does not exist", "containernotfound"},
	},
}

// Takeover matches the CNAME against the dangling-service fingerprint
// table. Returns (vulnerable, service type).
func Takeover(cname string) (bool, string) {
	if cname == "" {
		return false, ""
	}
	cname = strings.ToLower(strings.TrimSuffix(cname, "."))
	for _, fp := range takeoverFingerprints {
		for _, suffix := range fp.Suffixes {
			if strings.HasSuffix(cname, suffix) {
				return true, fp.Service
			}
		}
	}
	return false, ""
}

// VerifyTakeover confirms a fingerprint match against the retained
// response body: the service's "not configured" error string, or an
// HTTP 404 for services that serve a bare 404 page instead.
func VerifyTakeover(service, bodySample string, httpStatus, httpsStatus int) bool {
	var fp *takeoverFingerprint
	for i := range takeoverFingerprints {
		if takeoverFingerprints[i].Service == service {
			fp = &takeoverFingerprints[i]
			break
		}
	}
	if fp == nil {
		return false
	}

	body := strings.ToLower(bodySample)
	for _, sig := range fp.Signatures {
		if strings.Contains(body, sig) {
			return true
		}
	}
	if fp.Verify404 && (httpStatus == 404 || httpsStatus == 404) {
		return true
	}
	return false
}
