package config

type TextractConfig struct {
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	// LINE blocks below this confidence are dropped
	MinConfidence float64 `yaml:"minConfidence"`
}

// textract 与 s3 共用 AWS 凭证
func (c *TextractConfig) applyEnv() {
	setString(&c.Region, "AWS_REGION")
	setString(&c.Endpoint, "AWS_ENDPOINT")
	setString(&c.AccessKey, "AWS_ACCESS_KEY")
	setString(&c.SecretKey, "AWS_SECRET_KEY")
}
