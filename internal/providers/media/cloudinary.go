package media

import (
	"context"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

const uploadDefaultTimeout = 60 * time.Second

// Transformations applied by the image tools.
const (
	// TransformBackgroundRemoval runs the store's AI background removal
	// during upload.
	TransformBackgroundRemoval = "e_background_removal"
)

// ObjectRemoval builds the generative object-removal transformation for a
// named object.
func ObjectRemoval(object string) string {
	return "e_gen_remove:prompt_" + strings.ReplaceAll(strings.TrimSpace(object), " ", "%20")
}

// Store uploads images to a media CDN and builds derived delivery URLs.
type Store interface {
	UploadImage(ctx context.Context, req UploadRequest) (*UploadResult, error)
	DeliveryURL(publicID, transformation string) string
}

// UploadRequest describes one image upload.
type UploadRequest struct {
	Data []byte
	MIME string
	// Transformation, when set, is applied server-side during the upload so
	// the returned secure URL already points at the derived image.
	Transformation string
}

// UploadResult is the subset of the upload response the service consumes.
type UploadResult struct {
	PublicID  string `json:"public_id"`
	SecureURL string `json:"secure_url"`
}

// CloudinaryOptions configures a Cloudinary client.
type CloudinaryOptions struct {
	CloudName   string
	APIKey      string
	APISecret   string
	BaseURL     string
	DeliveryURL string
	HTTPClient  *http.Client
	Now         func() time.Time
}

// Cloudinary implements Store against the Cloudinary upload API. Requests
// are authenticated with the documented SHA-1 signature over the sorted
// non-file parameters plus the API secret.
type Cloudinary struct {
	cloudName   string
	apiKey      string
	apiSecret   string
	baseURL     string
	deliveryURL string
	client      *http.Client
	now         func() time.Time
}

// NewCloudinary constructs a Cloudinary client.
func NewCloudinary(opts CloudinaryOptions) (*Cloudinary, error) {
	if strings.TrimSpace(opts.CloudName) == "" {
		return nil, errors.New("media cloud name is required")
	}
	if strings.TrimSpace(opts.APIKey) == "" || strings.TrimSpace(opts.APISecret) == "" {
		return nil, errors.New("media api credentials are required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.cloudinary.com/v1_1"
	}
	deliveryURL := strings.TrimRight(opts.DeliveryURL, "/")
	if deliveryURL == "" {
		deliveryURL = "https://res.cloudinary.com"
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: uploadDefaultTimeout}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Cloudinary{
		cloudName:   strings.TrimSpace(opts.CloudName),
		apiKey:      strings.TrimSpace(opts.APIKey),
		apiSecret:   strings.TrimSpace(opts.APISecret),
		baseURL:     baseURL,
		deliveryURL: deliveryURL,
		client:      client,
		now:         now,
	}, nil
}

// UploadImage implements Store. The image is sent inline as a base64 data
// URI, which keeps the request a single urlencoded POST.
func (c *Cloudinary) UploadImage(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	if len(req.Data) == 0 {
		return nil, errors.New("image data is required")
	}
	mime := strings.TrimSpace(req.MIME)
	if mime == "" {
		mime = "image/png"
	}
	dataURI := fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(req.Data))

	params := map[string]string{
		"timestamp": strconv.FormatInt(c.now().Unix(), 10),
	}
	if t := strings.TrimSpace(req.Transformation); t != "" {
		params["transformation"] = t
	}

	form := url.Values{}
	for k, v := range params {
		form.Set(k, v)
	}
	form.Set("file", dataURI)
	form.Set("api_key", c.apiKey)
	form.Set("signature", c.sign(params))

	endpoint := fmt.Sprintf("%s/%s/image/upload", c.baseURL, url.PathEscape(c.cloudName))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build upload request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("upload request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("upload request: status %d", resp.StatusCode)
	}
	var out UploadResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode upload response: %w", err)
	}
	if out.SecureURL == "" {
		return nil, errors.New("upload response missing secure url")
	}
	return &out, nil
}

// DeliveryURL implements Store.
func (c *Cloudinary) DeliveryURL(publicID, transformation string) string {
	segments := []string{c.deliveryURL, url.PathEscape(c.cloudName), "image", "upload"}
	if t := strings.TrimSpace(transformation); t != "" {
		segments = append(segments, t)
	}
	segments = append(segments, url.PathEscape(publicID))
	return strings.Join(segments, "/")
}

// sign computes the SHA-1 request signature: the non-file parameters sorted
// by key, urlencoded-style joined, with the API secret appended.
func (c *Cloudinary) sign(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}
	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + c.apiSecret))
	return hex.EncodeToString(sum[:])
}

var _ Store = (*Cloudinary)(nil)
